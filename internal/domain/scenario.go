package domain

// Scenario identifies one side of a policy comparison.
type Scenario string

// Scenario constants
const (
	ScenarioBaseline Scenario = "baseline" // current law
	ScenarioReform   Scenario = "reform"   // proposed policy
)

// Scenarios lists both scenarios in comparison order.
var Scenarios = []Scenario{ScenarioBaseline, ScenarioReform}

// Aggregation tells a result provider how to shape a variable.
type Aggregation string

// Aggregation constants
const (
	AggregationPerson    Aggregation = "person"    // one value per person (household values mapped down)
	AggregationHousehold Aggregation = "household" // one value per household
	AggregationSweep     Aggregation = "sweep"     // one value per earnings sweep point, summed over members
	AggregationSum       Aggregation = "sum"       // single population total
)

// Variable names requested from the microsimulation engine.
const (
	VarHouseholdNetIncome      = "household_net_income"
	VarEquivHouseholdNetIncome = "equiv_household_net_income"
	VarPersonWeight            = "person_weight"
	VarIsChild                 = "is_child"
	VarIsStatePensionAge       = "is_SP_age"
	VarInPoverty               = "in_poverty"
	VarEmploymentIncome        = "employment_income"
	VarNetIncome               = "net_income"
)
