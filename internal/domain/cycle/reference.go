package cycle

// ReferencePhase is one row of the static reference table: a coarse phase of
// the canonical 28-day cycle keyed by day-of-cycle range, with the descriptive
// text rendered into notifications. Its boundaries are fixed and independent
// of any computed partition; the projector uses them only for the
// "phase approaching" lead-time reminder.
type ReferencePhase struct {
	Key             string
	Name            PhaseName
	Title           string
	StartDay        int
	EndDay          int
	Description     string
	Symptoms        string
	Behavior        string
	Recommendations string
}

// StageNotes is the descriptive text for one sub-phase of a phase.
type StageNotes struct {
	Title           string
	Symptoms        string
	Behavior        string
	Recommendations string
}

// ReferenceTable is an immutable catalog of reference phases and sub-phase
// notes. It is constructed explicitly and passed to its consumers; there is
// no lazily-initialized global.
type ReferenceTable struct {
	phases []ReferencePhase
	notes  map[PhaseName]map[Stage]StageNotes
}

// NewReferenceTable builds the canonical reference catalog.
func NewReferenceTable() ReferenceTable {
	return ReferenceTable{
		phases: []ReferencePhase{
			{
				Key:             "menstrual",
				Name:            PhaseMenstrual,
				Title:           "Менструальная",
				StartDay:        1,
				EndDay:          7,
				Description:     "Фаза менструального кровотечения, организм очищается от эндометрия.",
				Symptoms:        "Слабость, апатия, боли внизу живота, усталость",
				Behavior:        "Низкая активность, потребность в отдыхе",
				Recommendations: "Обеспечьте максимальный комфорт, будьте терпеливы, предложите помощь",
			},
			{
				Key:             "follicular",
				Name:            PhaseFollicular,
				Title:           "Фолликулярная",
				StartDay:        7,
				EndDay:          14,
				Description:     "Фаза созревания фолликула, уровень эстрогена растёт.",
				Symptoms:        "Прилив сил, улучшение настроения, повышение энергии",
				Behavior:        "Повышенная активность, уверенность, инициативность",
				Recommendations: "Отличное время для совместных активностей и новых начинаний",
			},
			{
				Key:             "ovulation",
				Name:            PhaseOvulation,
				Title:           "Овуляция",
				StartDay:        14,
				EndDay:          15,
				Description:     "Выход зрелой яйцеклетки из фолликула, пик фертильности.",
				Symptoms:        "Повышенное либидо, прилив сил, возможны лёгкие боли внизу живота",
				Behavior:        "Максимальная активность, уверенность в себе",
				Recommendations: "Идеальное время для романтики и активного общения",
			},
			{
				Key:             "luteal",
				Name:            PhaseLuteal,
				Title:           "Лютеиновая (ПМС)",
				StartDay:        15,
				EndDay:          28,
				Description:     "Фаза после овуляции, во второй половине возможен предменструальный синдром.",
				Symptoms:        "Раздражительность, усталость, перепады настроения, изменения аппетита",
				Behavior:        "Эмоциональная нестабильность, потребность в поддержке",
				Recommendations: "Максимальная поддержка: помогайте больше, избегайте конфликтов",
			},
		},
		notes: map[PhaseName]map[Stage]StageNotes{
			PhaseMenstrual: {
				StageEarly: {
					Title:           "Начало менструации",
					Symptoms:        "Наиболее обильное кровотечение, спазмы, упадок сил",
					Behavior:        "Минимум активности, желание уединиться",
					Recommendations: "Тёплый напиток, грелка, никаких требований",
				},
				StageMid: {
					Title:           "Середина менструации",
					Symptoms:        "Кровотечение ослабевает, утомляемость сохраняется",
					Behavior:        "Постепенное возвращение сил",
					Recommendations: "Спокойные совместные занятия дома",
				},
				StageLate: {
					Title:           "Завершение менструации",
					Symptoms:        "Кровотечение заканчивается, настроение выравнивается",
					Behavior:        "Готовность к обычному ритму",
					Recommendations: "Можно планировать лёгкие прогулки",
				},
			},
			PhaseFollicular: {
				StageEarly: {
					Title:           "Ранняя фолликулярная фаза",
					Symptoms:        "Рост энергии, ясная голова",
					Behavior:        "Желание браться за новое",
					Recommendations: "Предложите спланировать что-то вместе",
				},
				StageMid: {
					Title:           "Середина фолликулярной фазы",
					Symptoms:        "Высокая энергия, хорошее настроение",
					Behavior:        "Социальная активность на подъёме",
					Recommendations: "Подходящее время для встреч и поездок",
				},
				StageLate: {
					Title:           "Поздняя фолликулярная фаза",
					Symptoms:        "Пик энергии, повышенное либидо",
					Behavior:        "Уверенность, привлекательность",
					Recommendations: "Время для романтики",
				},
			},
			PhaseLuteal: {
				StageEarly: {
					Title:           "Ранняя лютеиновая фаза",
					Symptoms:        "Спокойствие, лёгкое снижение энергии",
					Behavior:        "Размеренный ритм",
					Recommendations: "Поддерживайте привычный распорядок",
				},
				StageMid: {
					Title:           "Середина лютеиновой фазы",
					Symptoms:        "Утомляемость, возможна раздражительность",
					Behavior:        "Чувствительность к мелочам",
					Recommendations: "Больше терпения, меньше критики",
				},
				StageLate: {
					Title:           "Поздняя лютеиновая фаза (ПМС)",
					Symptoms:        "ПМС: перепады настроения, вздутие, тяга к сладкому",
					Behavior:        "Эмоциональная нестабильность",
					Recommendations: "Максимум заботы, избегайте конфликтов",
				},
			},
		},
	}
}

// Phases returns the reference phases ordered by start day.
func (t ReferenceTable) Phases() []ReferencePhase {
	out := make([]ReferencePhase, len(t.phases))
	copy(out, t.phases)
	return out
}

// ByName returns the reference row for a computed phase name.
func (t ReferenceTable) ByName(name PhaseName) (ReferencePhase, bool) {
	for _, ph := range t.phases {
		if ph.Name == name {
			return ph, true
		}
	}
	return ReferencePhase{}, false
}

// Notes returns the sub-phase text for (phase, stage). For the ovulatory
// phase, or when no stage text exists, the phase-level row should be used.
func (t ReferenceTable) Notes(name PhaseName, stage Stage) (StageNotes, bool) {
	stages, ok := t.notes[name]
	if !ok {
		return StageNotes{}, false
	}
	n, ok := stages[stage]
	return n, ok
}
