// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// DieSides is the die used for skill checks.
const DieSides = 20

// RollOutcome is the result of resolving a RollCheck.
type RollOutcome struct {
	Check   RollCheck
	Rolls   []int // every die drawn, in order
	Roll    int   // the die that counts
	Success bool
}

// Describe renders the outcome for the user, e.g.
// "Persuasion check (DC 15, advantage): rolled 4 and 17, keeping 17 - SUCCESS".
func (o RollOutcome) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s check (DC %d", titleCase(o.Check.Skill), o.Check.Difficulty)
	switch {
	case o.Check.Advantage:
		b.WriteString(", advantage")
	case o.Check.Disadvantage:
		b.WriteString(", disadvantage")
	}
	b.WriteString("): ")

	if len(o.Rolls) == 2 {
		fmt.Fprintf(&b, "rolled %d and %d, keeping %d", o.Rolls[0], o.Rolls[1], o.Roll)
	} else {
		fmt.Fprintf(&b, "rolled %d", o.Roll)
	}

	if o.Success {
		b.WriteString(" - SUCCESS")
	} else {
		b.WriteString(" - FAILURE")
	}
	return b.String()
}

// SkillCheckResolver rolls d20 checks. It is safe for concurrent use.
type SkillCheckResolver struct {
	mu  sync.Mutex
	d20 func() int
}

// NewSkillCheckResolver creates a resolver drawing from d20, which must
// return values in [1,20]. A nil d20 uses a randomly seeded generator.
func NewSkillCheckResolver(d20 func() int) *SkillCheckResolver {
	if d20 == nil {
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		d20 = func() int { return rng.IntN(DieSides) + 1 }
	}
	return &SkillCheckResolver{d20: d20}
}

// NewSeededSkillCheckResolver creates a deterministic resolver.
func NewSeededSkillCheckResolver(seed uint64) *SkillCheckResolver {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return NewSkillCheckResolver(func() int { return rng.IntN(DieSides) + 1 })
}

// Resolve rolls once for a plain check, twice keeping the higher die with
// advantage, and twice keeping the lower die with disadvantage. The check
// succeeds when the kept die meets or beats the difficulty.
func (r *SkillCheckResolver) Resolve(check RollCheck) (RollOutcome, error) {
	if err := check.Validate(); err != nil {
		return RollOutcome{}, err
	}

	r.mu.Lock()
	rolls := []int{r.d20()}
	if check.Advantage || check.Disadvantage {
		rolls = append(rolls, r.d20())
	}
	r.mu.Unlock()

	kept := rolls[0]
	if len(rolls) == 2 {
		switch {
		case check.Advantage:
			kept = max(rolls[0], rolls[1])
		case check.Disadvantage:
			kept = min(rolls[0], rolls[1])
		}
	}

	RecordSkillCheck(kept >= check.Difficulty)
	return RollOutcome{
		Check:   check,
		Rolls:   rolls,
		Roll:    kept,
		Success: kept >= check.Difficulty,
	}, nil
}
