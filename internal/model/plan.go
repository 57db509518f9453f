package model

// Plan is a subscription tier
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanAgency Plan = "agency"
)

// Valid reports whether p is a known tier
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanAgency:
		return true
	}
	return false
}

// PlanLimits holds per-plan numeric ceilings. A nil value means unlimited.
type PlanLimits struct {
	InvoicesPerMonth *int
	ActiveClients    *int
}

func intPtr(n int) *int { return &n }

// planLimits is the static plan table
var planLimits = map[Plan]PlanLimits{
	PlanFree:   {InvoicesPerMonth: intPtr(10), ActiveClients: intPtr(5)},
	PlanPro:    {},
	PlanAgency: {},
}

// LimitsFor returns the limit table entry for a plan, defaulting to free.
func LimitsFor(p Plan) PlanLimits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// LimitResult is the outcome of a plan limit check
type LimitResult struct {
	Allowed bool `json:"allowed"`
	Limit   *int `json:"limit"`
	Current int  `json:"current"`
	Plan    Plan `json:"plan"`
}
