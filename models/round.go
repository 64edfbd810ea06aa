package models

// Round is a closed set of stage tags. Which of them a tournament may use is decided by
// the round table in the brackets package.
type Round string

const (
	RoundRobin1 Round = "RR_R1"
	RoundRobin2 Round = "RR_R2"
	RoundRobin3 Round = "RR_R3"

	RoundOf64    Round = "round-of-64"
	RoundOf32    Round = "round-of-32"
	RoundOf16    Round = "round-of-16"
	Quarterfinal Round = "quarterfinal"
	Semifinal    Round = "semifinal"
	Final        Round = "final"

	LosersRound1    Round = "lbr-round-1"
	LosersRound2    Round = "lbr-round-2"
	LosersRound3    Round = "lbr-round-3"
	LosersRound4    Round = "lbr-round-4"
	LosersRound5    Round = "lbr-round-5"
	LosersRound6    Round = "lbr-round-6"
	LosersRound7    Round = "lbr-round-7"
	LosersRound8    Round = "lbr-round-8"
	LosersSemifinal Round = "lbr-semifinal"
	LosersFinal     Round = "lbr-final"

	GrandFinal      Round = "grand-final"
	GrandFinalReset Round = "grand-final-reset"
)

// RoundRobinRounds lists the round-robin stage in play order.
var RoundRobinRounds = []Round{RoundRobin1, RoundRobin2, RoundRobin3}

func (r Round) IsRoundRobin() bool {
	return r == RoundRobin1 || r == RoundRobin2 || r == RoundRobin3
}
