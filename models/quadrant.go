package models

// Quadrant is the engagement bucket derived from influence and impact.
type Quadrant string

const (
	QuadrantManageClosely Quadrant = "manage-closely"
	QuadrantKeepSatisfied Quadrant = "keep-satisfied"
	QuadrantKeepInformed  Quadrant = "keep-informed"
	QuadrantMonitor       Quadrant = "monitor"
)

// QuadrantThreshold is the score at which influence or impact counts as high.
const QuadrantThreshold = 7

// Quadrants lists every quadrant in matrix order.
var Quadrants = []Quadrant{
	QuadrantManageClosely,
	QuadrantKeepSatisfied,
	QuadrantKeepInformed,
	QuadrantMonitor,
}

func QuadrantFor(influence, impact int) Quadrant {
	highInfluence := influence >= QuadrantThreshold
	highImpact := impact >= QuadrantThreshold
	switch {
	case highInfluence && highImpact:
		return QuadrantManageClosely
	case highInfluence:
		return QuadrantKeepSatisfied
	case highImpact:
		return QuadrantKeepInformed
	default:
		return QuadrantMonitor
	}
}

// Category classifies a stakeholder.
type Category string

const (
	CategoryInternal   Category = "internal"
	CategoryExternal   Category = "external"
	CategoryCustomer   Category = "customer"
	CategorySupplier   Category = "supplier"
	CategoryPartner    Category = "partner"
	CategoryInvestor   Category = "investor"
	CategoryGovernment Category = "government"
	CategoryRegulator  Category = "regulator"
	CategoryCommunity  Category = "community"
	CategoryMedia      Category = "media"
	CategoryOther      Category = "other"
)

var categories = map[Category]bool{
	CategoryInternal:   true,
	CategoryExternal:   true,
	CategoryCustomer:   true,
	CategorySupplier:   true,
	CategoryPartner:    true,
	CategoryInvestor:   true,
	CategoryGovernment: true,
	CategoryRegulator:  true,
	CategoryCommunity:  true,
	CategoryMedia:      true,
	CategoryOther:      true,
}

// ParseCategory returns the matching category or CategoryOther.
func ParseCategory(s string) Category {
	c := Category(s)
	if categories[c] {
		return c
	}
	return CategoryOther
}
