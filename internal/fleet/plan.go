package fleet

// Plan is the ordered list of side-effect descriptions `dry_run` produces
// instead of executing.
type Plan struct {
	Steps []PlanStep
}

// PlanStep describes one action an executed up/down/restart would have
// taken against one jail, without taking it.
type PlanStep struct {
	Jail   string
	Action string
}

func (p *Plan) add(jail, action string) {
	p.Steps = append(p.Steps, PlanStep{Jail: jail, Action: action})
}
