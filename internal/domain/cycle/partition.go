package cycle

import (
	"encoding/json"
	"fmt"
)

// Domain ranges for cycle parameters.
const (
	MinCycleLength        = 21
	MaxCycleLength        = 35
	MinMenstruationLength = 1
	MaxMenstruationLength = 10

	// OvulationDurationDays is the fixed span of the ovulatory phase,
	// centered on the estimated ovulation date.
	OvulationDurationDays = 2

	nominalLutealLength   = 12
	minFollicularLength   = 5
	fertileWindowLeadDays = 5
)

var ErrInvalidInput = fmt.Errorf("invalid cycle input")

// PhaseName identifies one of the four ordered cycle phases.
type PhaseName string

const (
	PhaseMenstrual  PhaseName = "Menstrual Phase"
	PhaseFollicular PhaseName = "Follicular Phase"
	PhaseOvulation  PhaseName = "Ovulation"
	PhaseLuteal     PhaseName = "Luteal Phase"
)

// Stage identifies a contiguous third of a phase.
type Stage string

const (
	StageEarly Stage = "early"
	StageMid   Stage = "mid"
	StageLate  Stage = "late"
)

// SubPhase is one inclusive sub-range of a phase.
type SubPhase struct {
	Stage     Stage `json:"stage"`
	StartDate Date  `json:"start_date"`
	EndDate   Date  `json:"end_date"`
}

// Phase is one inclusive date range of a partition. The ovulatory phase has
// no sub-phases; the other three carry exactly three.
type Phase struct {
	Name         PhaseName
	DurationDays int
	StartDate    Date
	EndDate      Date
	SubPhases    []SubPhase
	Note         string
}

// DateRange is an inclusive calendar interval.
type DateRange struct {
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

// Info carries the cycle-level summary of a partition.
type Info struct {
	CycleLengthDays        int       `json:"cycle_length_days"`
	MenstruationLengthDays int       `json:"menstruation_length_days"`
	LastMenstruationStart  Date      `json:"last_menstruation_start"`
	CycleEndDate           Date      `json:"cycle_end_date"`
	NextCycleStart         Date      `json:"next_cycle_start"`
	EstimatedOvulationDate Date      `json:"estimated_ovulation_date"`
	FertileWindow          DateRange `json:"fertile_window"`
}

// Partition is the computed phase structure of one cycle instance.
type Partition struct {
	Info   Info    `json:"cycle_info"`
	Phases []Phase `json:"phases"`
}

// NewPartition computes the four ordered phases of a cycle anchored at start.
// The luteal phase is nominally 12 days; when that would leave the follicular
// phase under 5 days, the luteal phase shrinks so the follicular phase keeps
// its floor. Deterministic, no side effects.
func NewPartition(cycleLength, menstruationLength int, start Date) (*Partition, error) {
	if cycleLength < MinCycleLength || cycleLength > MaxCycleLength {
		return nil, fmt.Errorf("%w: cycle length %d outside [%d, %d]",
			ErrInvalidInput, cycleLength, MinCycleLength, MaxCycleLength)
	}
	if menstruationLength < MinMenstruationLength || menstruationLength > MaxMenstruationLength {
		return nil, fmt.Errorf("%w: menstruation length %d outside [%d, %d]",
			ErrInvalidInput, menstruationLength, MinMenstruationLength, MaxMenstruationLength)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start date is not set", ErrInvalidInput)
	}

	lutealLength, follicularLength := phaseLengths(cycleLength, menstruationLength)

	ovulationDate := start.AddDays(menstruationLength + follicularLength - 1)
	cycleEnd := start.AddDays(cycleLength - 1)

	menstrualEnd := start.AddDays(menstruationLength - 1)
	follicularStart := start.AddDays(menstruationLength)
	lutealStart := ovulationDate.AddDays(OvulationDurationDays)

	// The 2-day ovulatory phase is centered on the ovulation date, absorbing
	// the last follicular day and the first luteal day: the follicular and
	// luteal date ranges each span one day less than their computed lengths,
	// keeping the four phase spans summing exactly to cycleLength.
	follicularSpan := follicularLength - 1
	lutealSpan := lutealLength - 1

	return &Partition{
		Info: Info{
			CycleLengthDays:        cycleLength,
			MenstruationLengthDays: menstruationLength,
			LastMenstruationStart:  start,
			CycleEndDate:           cycleEnd,
			NextCycleStart:         start.AddDays(cycleLength),
			EstimatedOvulationDate: ovulationDate,
			FertileWindow: DateRange{
				StartDate: ovulationDate.AddDays(-fertileWindowLeadDays),
				EndDate:   ovulationDate,
			},
		},
		Phases: []Phase{
			{
				Name:         PhaseMenstrual,
				DurationDays: menstruationLength,
				StartDate:    start,
				EndDate:      menstrualEnd,
				SubPhases:    menstrualThirds(start, menstruationLength, menstrualEnd),
			},
			{
				Name:         PhaseFollicular,
				DurationDays: follicularSpan,
				StartDate:    follicularStart,
				EndDate:      ovulationDate.AddDays(-1),
				SubPhases:    evenThirds(follicularStart, follicularLength, ovulationDate.AddDays(-1)),
			},
			{
				Name:         PhaseOvulation,
				DurationDays: OvulationDurationDays,
				StartDate:    ovulationDate,
				EndDate:      ovulationDate.AddDays(OvulationDurationDays - 1),
				Note:         "Peak fertility window",
			},
			{
				Name:         PhaseLuteal,
				DurationDays: lutealSpan,
				StartDate:    lutealStart,
				EndDate:      cycleEnd,
				SubPhases:    evenThirds(lutealStart, lutealLength, cycleEnd),
			},
		},
	}, nil
}

// phaseLengths applies the luteal-shrink rule and returns (luteal, follicular).
// The follicular floor wins over the nominal luteal length: a short cycle with
// long menses shrinks the luteal phase, never the follicular one, so every
// phase keeps a well-formed date range.
func phaseLengths(cycleLength, menstruationLength int) (int, int) {
	lutealLength := nominalLutealLength
	follicularLength := cycleLength - menstruationLength - lutealLength
	if follicularLength < minFollicularLength {
		follicularLength = minFollicularLength
		lutealLength = cycleLength - menstruationLength - follicularLength
	}
	return lutealLength, follicularLength
}

// menstrualThirds cuts [start, end] at start+third and start+2*third, with
// remainder days landing in the late third. The follicular and luteal phases
// use the offset-by-one convention in evenThirds instead; the asymmetry is
// part of the product definition.
func menstrualThirds(start Date, length int, end Date) []SubPhase {
	third := length / 3
	return []SubPhase{
		{Stage: StageEarly, StartDate: start, EndDate: start.AddDays(third)},
		{Stage: StageMid, StartDate: start.AddDays(third + 1), EndDate: start.AddDays(2 * third)},
		{Stage: StageLate, StartDate: start.AddDays(2*third + 1), EndDate: end},
	}
}

func evenThirds(start Date, length int, end Date) []SubPhase {
	third := length / 3
	return []SubPhase{
		{Stage: StageEarly, StartDate: start, EndDate: start.AddDays(third - 1)},
		{Stage: StageMid, StartDate: start.AddDays(third), EndDate: start.AddDays(2*third - 1)},
		{Stage: StageLate, StartDate: start.AddDays(2 * third), EndDate: end},
	}
}

// phaseJSON is the wire shape of a phase: subphased phases serialize their
// sub-ranges, the ovulatory phase serializes its own bounds.
type phaseJSON struct {
	Name         PhaseName  `json:"phase_name"`
	DurationDays int        `json:"duration_days"`
	StartDate    *Date      `json:"start_date,omitempty"`
	EndDate      *Date      `json:"end_date,omitempty"`
	SubPhases    []SubPhase `json:"subphases,omitempty"`
	Note         string     `json:"note,omitempty"`
}

func (p Phase) MarshalJSON() ([]byte, error) {
	out := phaseJSON{Name: p.Name, DurationDays: p.DurationDays}
	if len(p.SubPhases) > 0 {
		out.SubPhases = p.SubPhases
	} else {
		start, end := p.StartDate, p.EndDate
		out.StartDate = &start
		out.EndDate = &end
		out.Note = p.Note
	}
	return json.Marshal(out)
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var in phaseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Name = in.Name
	p.DurationDays = in.DurationDays
	p.SubPhases = in.SubPhases
	p.Note = in.Note
	switch {
	case len(in.SubPhases) > 0:
		p.StartDate = in.SubPhases[0].StartDate
		p.EndDate = in.SubPhases[len(in.SubPhases)-1].EndDate
	case in.StartDate != nil && in.EndDate != nil:
		p.StartDate = *in.StartDate
		p.EndDate = *in.EndDate
	}
	return nil
}
