// Package category defines the closed set of advisory categories and the
// instruction template each one carries.
package category

import "strings"

// Category selects the instruction template that governs a reply.
type Category uint8

const (
	InterviewDesign Category = iota
	JobDescriptions
	LeadershipCoaching
	WorkforcePlanning
	HRSystems
	PerformanceManagement

	numCategories
)

// Default is used for empty or unknown keys.
const Default = LeadershipCoaching

type definition struct {
	key      string
	label    string
	template string
}

var definitions = [numCategories]definition{
	InterviewDesign: {
		key:      "interview_design",
		label:    "Interview Design",
		template: interviewDesignTemplate(),
	},
	JobDescriptions: {
		key:      "job_descriptions",
		label:    "Job Descriptions",
		template: jobDescriptionsTemplate(),
	},
	LeadershipCoaching: {
		key:      "leadership_coaching",
		label:    "Leadership Coaching",
		template: leadershipCoachingTemplate(),
	},
	WorkforcePlanning: {
		key:      "workforce_planning",
		label:    "Hiring & Workforce Planning",
		template: workforcePlanningTemplate(),
	},
	HRSystems: {
		key:      "hr_systems",
		label:    "HR Systems & Processes",
		template: hrSystemsTemplate(),
	},
	PerformanceManagement: {
		key:      "performance_management",
		label:    "Performance Management",
		template: performanceManagementTemplate(),
	},
}

var byKey = func() map[string]Category {
	m := make(map[string]Category, numCategories)
	for c := Category(0); c < numCategories; c++ {
		m[definitions[c].key] = c
	}
	return m
}()

// All returns every category in declaration order.
func All() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// Parse looks up a category by its wire key.
func Parse(key string) (Category, bool) {
	c, ok := byKey[strings.TrimSpace(key)]
	return c, ok
}

// Resolve is Parse with the default substituted for unknown keys.
func Resolve(key string) Category {
	if c, ok := Parse(key); ok {
		return c
	}
	return Default
}

// Labels maps every category key to its human label.
func Labels() map[string]string {
	out := make(map[string]string, numCategories)
	for _, c := range All() {
		out[c.Key()] = c.Label()
	}
	return out
}

func (c Category) valid() bool { return c < numCategories }

// Key is the wire identifier, e.g. "leadership_coaching".
func (c Category) Key() string {
	if !c.valid() {
		return Default.Key()
	}
	return definitions[c].key
}

func (c Category) Label() string {
	if !c.valid() {
		return Default.Label()
	}
	return definitions[c].label
}

// Template is the instruction text sent on the provider's system channel.
func (c Category) Template() string {
	if !c.valid() {
		return Default.Template()
	}
	return definitions[c].template
}

func (c Category) String() string { return c.Key() }
