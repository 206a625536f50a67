package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/impact"
	"policy-impact-lab/internal/provider"
	"policy-impact-lab/internal/storage"
)

// Demo fixture shape.
const (
	DemoDataset     = "demo"
	DemoHouseholds  = 80
	DemoPeople      = 200
	DemoSweepPoints = 81

	demoSweepStep         = 1000.0
	demoReferenceEarnings = 30000.0
	fixtureCreatedAt      = int64(1704067200000) // 2024-01-01 00:00:00 UTC
)

// policy is a toy tax-benefit system used to derive the demo vectors.
type policy struct {
	taxRate      float64
	niRate       float64
	allowance    float64
	ubi          float64 // per adult
	childBenefit float64 // per child
	ucMax        float64 // per working-age household
	ucTaper      float64
}

var (
	baselinePolicy = policy{
		taxRate:      0.20,
		niRate:       0.12,
		allowance:    12570,
		childBenefit: 1100,
		ucMax:        6000,
		ucTaper:      0.55,
	}
	// reformPolicy funds a flat UBI with a higher basic rate.
	reformPolicy = policy{
		taxRate:      0.22,
		niRate:       0.12,
		allowance:    12570,
		ubi:          1500,
		childBenefit: 1100,
		ucMax:        6000,
		ucTaper:      0.55,
	}
)

func policyFor(s domain.Scenario) policy {
	if s == domain.ScenarioReform {
		return reformPolicy
	}
	return baselinePolicy
}

type member struct {
	group      domain.Group
	employment float64
	pension    float64
}

type household struct {
	members []member
	weight  float64
}

// demoHouseholds builds 40 two-person and 40 three-person households.
// Every fifth household is a pensioner household; the third member of a
// working-age household is a child.
func demoHouseholds() []household {
	hh := make([]household, DemoHouseholds)
	for h := range hh {
		members := make([]member, 2+h%2)
		for m := range members {
			switch {
			case h%5 == 0:
				members[m] = member{group: domain.GroupSenior, pension: 9000 + 500*float64((h+m)%7)}
			case m == 2:
				members[m] = member{group: domain.GroupChild}
			default:
				members[m] = member{group: domain.GroupWorkingAge, employment: 1500 * float64((h*37+m*11)%40)}
			}
		}
		hh[h] = household{members: members, weight: 100 + 25*float64(h%4)}
	}
	return hh
}

// budget applies p to one household and returns its component amounts and
// net income. Taxes are positive amounts.
func (p policy) budget(h household) (map[string]float64, float64) {
	amounts := make(map[string]float64, len(impact.Catalogue))
	for _, c := range impact.Catalogue {
		amounts[c.Key] = 0
	}
	children, earnings := 0, 0.0
	pensioner := false
	for _, m := range h.members {
		if m.group == domain.GroupChild {
			children++
			continue
		}
		if m.group == domain.GroupSenior {
			pensioner = true
		}
		earnings += m.employment
		amounts["employment_income"] += m.employment
		amounts["pension_income"] += m.pension
		amounts["income_tax"] += p.taxRate * math.Max(0, m.employment+m.pension-p.allowance)
		amounts["national_insurance"] += p.niRate * math.Max(0, m.employment-p.allowance)
		amounts["UBI"] += p.ubi
	}
	amounts["child_benefit"] = p.childBenefit * float64(children)
	if !pensioner {
		amounts["universal_credit"] = math.Max(0, p.ucMax-p.ucTaper*earnings)
	}

	net := 0.0
	for _, c := range impact.Catalogue {
		v := amounts[c.Key]
		if c.Polarity == domain.PolarityLoss {
			net -= v
		} else {
			net += v
		}
	}
	return amounts, net
}

// equivalenceScale is the modified OECD scale.
func equivalenceScale(h household) float64 {
	adults, children := 0, 0
	for _, m := range h.members {
		if m.group == domain.GroupChild {
			children++
		} else {
			adults++
		}
	}
	return 1 + 0.5*float64(adults-1) + 0.3*float64(children)
}

// scenarioData is one scenario of the demo population.
type scenarioData struct {
	people   []domain.PersonRecord
	totals   map[string]float64 // weighted component totals
	netTotal float64
}

func buildScenario(hh []household, p policy) scenarioData {
	data := scenarioData{
		people: make([]domain.PersonRecord, 0, DemoPeople),
		totals: make(map[string]float64),
	}
	for h, house := range hh {
		amounts, net := p.budget(house)
		equiv := net / equivalenceScale(house)
		for m, mem := range house.members {
			data.people = append(data.people, domain.PersonRecord{
				ID:                fmt.Sprintf("h%02d-p%d", h, m),
				Income:            net,
				EquivalisedIncome: equiv,
				Group:             mem.group,
				Weight:            house.weight,
			})
		}
		for key, v := range amounts {
			data.totals[key] += house.weight * v
		}
		data.netTotal += house.weight * net
	}
	return data
}

// povertyLine is 60% of the unweighted median baseline equivalised income.
func povertyLine(people []domain.PersonRecord) float64 {
	incomes := make([]float64, len(people))
	for i, p := range people {
		incomes[i] = p.EquivalisedIncome
	}
	sort.Float64s(incomes)
	n := len(incomes)
	if n == 0 {
		return 0
	}
	median := incomes[n/2]
	if n%2 == 0 {
		median = (incomes[n/2-1] + incomes[n/2]) / 2
	}
	return 0.6 * median
}

// sweepHousehold is a single adult with one child earning x.
func sweepHousehold(x float64) household {
	return household{
		members: []member{
			{group: domain.GroupWorkingAge, employment: x},
			{group: domain.GroupChild},
		},
		weight: 1,
	}
}

// DemoVectors returns every result vector of the demo fixtures for both
// scenarios. The baseline has no UBI variable, as an engine without the
// reform parameter would report.
func DemoVectors(dataset string) []*domain.ResultVector {
	hh := demoHouseholds()
	baseline := buildScenario(hh, baselinePolicy)
	line := povertyLine(baseline.people)

	var out []*domain.ResultVector
	add := func(s domain.Scenario, variable string, agg domain.Aggregation, values []float64) {
		out = append(out, &domain.ResultVector{
			Dataset:     dataset,
			Scenario:    s,
			Variable:    variable,
			Aggregation: agg,
			Values:      values,
			CreatedAt:   fixtureCreatedAt,
		})
	}

	for _, s := range domain.Scenarios {
		p := policyFor(s)
		data := baseline
		if s == domain.ScenarioReform {
			data = buildScenario(hh, p)
		}

		n := len(data.people)
		income := make([]float64, n)
		equiv := make([]float64, n)
		weights := make([]float64, n)
		isChild := make([]float64, n)
		isSenior := make([]float64, n)
		inPoverty := make([]float64, n)
		for i, person := range data.people {
			income[i] = person.Income
			equiv[i] = person.EquivalisedIncome
			weights[i] = person.Weight
			if person.Group == domain.GroupChild {
				isChild[i] = 1
			}
			if person.Group == domain.GroupSenior {
				isSenior[i] = 1
			}
			if person.EquivalisedIncome < line {
				inPoverty[i] = 1
			}
		}
		add(s, domain.VarHouseholdNetIncome, domain.AggregationPerson, income)
		add(s, domain.VarEquivHouseholdNetIncome, domain.AggregationPerson, equiv)
		add(s, domain.VarPersonWeight, domain.AggregationPerson, weights)
		add(s, domain.VarIsChild, domain.AggregationPerson, isChild)
		add(s, domain.VarIsStatePensionAge, domain.AggregationPerson, isSenior)
		add(s, domain.VarInPoverty, domain.AggregationPerson, inPoverty)

		for _, key := range componentKeys(s, data.totals) {
			add(s, key, domain.AggregationSum, []float64{data.totals[key]})
		}
		add(s, domain.VarNetIncome, domain.AggregationSum, []float64{data.netTotal})

		earnings := make([]float64, DemoSweepPoints)
		net := make([]float64, DemoSweepPoints)
		for i := range earnings {
			earnings[i] = float64(i) * demoSweepStep
			_, net[i] = p.budget(sweepHousehold(earnings[i]))
		}
		add(s, domain.VarEmploymentIncome, domain.AggregationSweep, earnings)
		add(s, domain.VarNetIncome, domain.AggregationSweep, net)

		amounts, refNet := p.budget(sweepHousehold(demoReferenceEarnings))
		for _, key := range componentKeys(s, amounts) {
			add(s, key, domain.AggregationHousehold, []float64{amounts[key]})
		}
		add(s, domain.VarNetIncome, domain.AggregationHousehold, []float64{refNet})
	}
	return out
}

// componentKeys lists the variables the demo engine reports for a scenario,
// sorted.
func componentKeys(s domain.Scenario, amounts map[string]float64) []string {
	keys := make([]string, 0, len(amounts))
	for key := range amounts {
		if key == "UBI" && s == domain.ScenarioBaseline {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// LoadStatic populates a static provider with the demo fixtures.
func LoadStatic(p *provider.Static) {
	for _, v := range DemoVectors(DemoDataset) {
		p.Set(v.Scenario, v.Variable, v.Aggregation, v.Values)
	}
}

// LoadFixtures writes the demo fixtures into a vector store under dataset.
func LoadFixtures(ctx context.Context, store storage.VectorStore, dataset string) (int, error) {
	vectors := DemoVectors(dataset)
	if err := store.InsertBulk(ctx, vectors); err != nil {
		return 0, fmt.Errorf("insert fixtures: %w", err)
	}
	return len(vectors), nil
}
