package models

import "time"

// Belt represents a rank in the academy's graduation ladder.
type Belt string

const (
	BeltBranca Belt = "Branca"
	BeltAzul   Belt = "Azul"
	BeltRoxa   Belt = "Roxa"
	BeltMarrom Belt = "Marrom"
	BeltPreta  Belt = "Preta"
)

// BeltOrder lists belts in promotion order.
var BeltOrder = []Belt{BeltBranca, BeltAzul, BeltRoxa, BeltMarrom, BeltPreta}

// MaxDegree is the highest degree awarded within a belt before promotion.
const MaxDegree = 4

// Valid returns true when the belt is a supported rank.
func (b Belt) Valid() bool {
	for _, belt := range BeltOrder {
		if belt == b {
			return true
		}
	}
	return false
}

// Next returns the following belt in the ladder, or empty string at the top rank.
func (b Belt) Next() Belt {
	for i, belt := range BeltOrder {
		if belt == b {
			if i == len(BeltOrder)-1 {
				return ""
			}
			return BeltOrder[i+1]
		}
	}
	return ""
}

// BeltHistory is an append-only record of a degree or belt award.
type BeltHistory struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Belt      Belt      `db:"belt" json:"belt"`
	Degree    int       `db:"degree" json:"degree"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	AwardedAt time.Time `db:"awarded_at" json:"awarded_at"`
}
