package cycle

// Projector answers day-of-cycle questions against an idealized repeating
// cycle. Unlike a Partition, which covers one absolute date window, the
// projector wraps with modular arithmetic, so its answers stay meaningful for
// display when today has drifted past the partitioned window (an overdue
// cycle). The two views are deliberately separate code paths.
type Projector struct {
	start              Date
	cycleLength        int
	menstruationLength int
	reference          ReferenceTable
}

// Transition describes the next upcoming coarse phase per the reference table.
type Transition struct {
	Phase     ReferencePhase
	DaysUntil int
	StartDate Date
}

func NewProjector(start Date, cycleLength, menstruationLength int, ref ReferenceTable) *Projector {
	return &Projector{
		start:              start,
		cycleLength:        cycleLength,
		menstruationLength: menstruationLength,
		reference:          ref,
	}
}

// CurrentDay returns the 1-based day of the idealized cycle for today,
// wrapping every cycleLength days.
func (p *Projector) CurrentDay(today Date) int {
	passed := p.start.DaysUntil(today)
	return floorMod(passed, p.cycleLength) + 1
}

// OvulationDayNumber is the 1-based day of cycle on which the ovulatory phase
// begins, using the same luteal-shrink rule as the partitioner.
func (p *Projector) OvulationDayNumber() int {
	_, follicularLength := phaseLengths(p.cycleLength, p.menstruationLength)
	return p.menstruationLength + follicularLength
}

// NextCycleStart returns the first day of the next idealized cycle.
func (p *Projector) NextCycleStart(today Date) Date {
	return today.AddDays(p.cycleLength - p.CurrentDay(today) + 1)
}

// LastOvulationDate returns the ovulation day of the current cycle if it has
// passed, otherwise of the previous one.
func (p *Projector) LastOvulationDate(today Date) Date {
	currentDay := p.CurrentDay(today)
	ovulationDay := p.OvulationDayNumber()
	if currentDay >= ovulationDay {
		return today.AddDays(-(currentDay - ovulationDay))
	}
	return today.AddDays(-(p.cycleLength - ovulationDay + currentDay))
}

// NextOvulationDate returns the ovulation day of the current cycle if still
// ahead, otherwise of the next one.
func (p *Projector) NextOvulationDate(today Date) Date {
	currentDay := p.CurrentDay(today)
	ovulationDay := p.OvulationDayNumber()
	if currentDay < ovulationDay {
		return today.AddDays(ovulationDay - currentDay)
	}
	return p.NextCycleStart(today).AddDays(ovulationDay - 1)
}

// NextPhaseTransition finds the first reference phase starting after the
// current day of cycle, wrapping to the first phase of the next cycle when
// none remains in this one.
func (p *Projector) NextPhaseTransition(today Date) Transition {
	currentDay := p.CurrentDay(today)
	for _, ph := range p.reference.Phases() {
		if ph.StartDay > currentDay {
			return Transition{
				Phase:     ph,
				DaysUntil: ph.StartDay - currentDay,
				StartDate: today.AddDays(ph.StartDay - currentDay),
			}
		}
	}
	first := p.reference.Phases()[0]
	startDate := p.NextCycleStart(today).AddDays(first.StartDay - 1)
	return Transition{
		Phase:     first,
		DaysUntil: today.DaysUntil(startDate),
		StartDate: startDate,
	}
}

// floorMod wraps like mathematical modulo, staying non-negative for dates
// before the cycle start.
func floorMod(x, n int) int {
	return ((x % n) + n) % n
}
