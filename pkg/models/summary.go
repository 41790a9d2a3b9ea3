package models

// Entity types reported in a migration summary, in processing order.
const (
	EntityCategories = "categories"
	EntityAuthors    = "authors"
	EntityBooks      = "books"
)

// Outcome is the result of processing one entity.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeChanged Outcome = "changed"
)

// Counts tallies entity outcomes.
type Counts struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AssetCounts tallies asset pipeline results.
type AssetCounts struct {
	Uploaded int `json:"uploaded"`
	Missing  int `json:"missing"`
	Failed   int `json:"failed"`
}

// Add accumulates other into c.
func (c *AssetCounts) Add(other AssetCounts) {
	c.Uploaded += other.Uploaded
	c.Missing += other.Missing
	c.Failed += other.Failed
}

// Summary is the final report of a migration run.
type Summary struct {
	RunID       string             `json:"runId"`
	DryRun      bool               `json:"dryRun"`
	Entities    map[string]*Counts `json:"entities"`
	Assets      AssetCounts        `json:"assets"`
	Republished int                `json:"republished"`
}

// NewSummary returns a summary with zeroed counters for every entity type.
func NewSummary(runID string) *Summary {
	return &Summary{
		RunID: runID,
		Entities: map[string]*Counts{
			EntityCategories: {},
			EntityAuthors:    {},
			EntityBooks:      {},
		},
	}
}

// Record adds one outcome for the given entity type.
func (s *Summary) Record(entity string, outcome Outcome) {
	c, ok := s.Entities[entity]
	if !ok {
		c = &Counts{}
		s.Entities[entity] = c
	}
	switch outcome {
	case OutcomeCreated:
		c.Created++
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeFailed:
		c.Failed++
	}
}

// TotalFailed returns the number of failed entities across all types.
func (s *Summary) TotalFailed() int {
	total := 0
	for _, c := range s.Entities {
		total += c.Failed
	}
	return total
}

// PassSummary is the report of a corrective pass.
type PassSummary struct {
	Pass     string `json:"pass"`
	RunID    string `json:"runId"`
	DryRun   bool   `json:"dryRun"`
	Examined int    `json:"examined"`
	Changed  int    `json:"changed"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// Record adds one outcome to the pass counters.
func (s *PassSummary) Record(outcome Outcome) {
	s.Examined++
	switch outcome {
	case OutcomeChanged, OutcomeCreated:
		s.Changed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// OutcomeRecord is one row of the run ledger.
type OutcomeRecord struct {
	RunID      string
	Pass       string
	Collection string
	Key        string
	Outcome    Outcome
	Error      string
}
