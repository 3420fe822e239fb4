package domain

import (
	"time"
)

type ProblemStatus string

const (
	ProblemStatusProposed ProblemStatus = "proposed"
	ProblemStatusOpen     ProblemStatus = "open"
	ProblemStatusSolved   ProblemStatus = "solved"
	ProblemStatusClosed   ProblemStatus = "closed"
)

// RankableStatuses are the statuses a problem must have to appear in any ranked list.
var RankableStatuses = []ProblemStatus{
	ProblemStatusOpen,
	ProblemStatusProposed,
}

type Problem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CategoryID  string        `json:"category_id"`
	VoteCount   int           `json:"vote_count"`
	ProposerID  string        `json:"proposer_id"`
	Status      ProblemStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Text is the content used for lexical similarity.
func (p Problem) Text() string {
	return p.Title + " " + p.Description
}

type Vote struct {
	UserID    string
	ProblemID string
	CreatedAt time.Time
}

type InteractionType string

const (
	InteractionTypeVote     InteractionType = "vote"
	InteractionTypeFavorite InteractionType = "favorite"
	InteractionTypeView     InteractionType = "view"
	InteractionTypeShare    InteractionType = "share"
	InteractionTypeComment  InteractionType = "comment"
)

var ValidInteractionTypes = []InteractionType{
	InteractionTypeVote,
	InteractionTypeFavorite,
	InteractionTypeView,
	InteractionTypeShare,
	InteractionTypeComment,
}

// Interaction is the aggregated record of one user's interactions of one type with a problem.
type Interaction struct {
	UserID          string
	ProblemID       string
	Type            InteractionType
	Weight          float64
	Count           int
	LastInteraction time.Time
}

// ProblemFilters restricts which problems a listing returns. Zero values mean no restriction.
type ProblemFilters struct {
	IDs               []string
	ExcludeIDs        []string
	Statuses          []ProblemStatus
	CategoryID        string
	ExcludeCategories []string
	MinVotes          int
	UpdatedAfter      time.Time
	ExcludeProposerID string
	ExcludeVotedBy    string
}

type ProblemOrderingField string

const (
	ProblemOrderingFieldCreatedAt ProblemOrderingField = "created_at"
	ProblemOrderingFieldUpdatedAt ProblemOrderingField = "updated_at"
	ProblemOrderingFieldVoteCount ProblemOrderingField = "vote_count"
)

// ProblemListOptions controls ordering and size of a listing. Ordering is always descending.
type ProblemListOptions struct {
	OrderBy ProblemOrderingField
	Limit   int
}
