package chaos

import "time"

// Config holds the configuration for a chaos exploration run.
type Config struct {
	// MaxSteps is the maximum number of key presses before stopping (0 = unlimited).
	MaxSteps int `json:"maxSteps"`

	// TimeBudget is the maximum wall-clock duration before stopping (0 = unlimited).
	TimeBudget time.Duration `json:"timeBudget"`

	// Seed is the random seed (0 = derive from time.Now()).
	Seed int64 `json:"seed"`

	// StepDelay is the pause between key presses.
	StepDelay time.Duration `json:"stepDelay"`

	// KeyWeights maps AID key names (e.g. "PgDn", "PF11") to relative integer
	// weights. A key is chosen proportionally to its weight.
	KeyWeights map[string]int `json:"keyWeights"`

	// EditRate is the chance, from 0 to 1, of typing into a random subfile
	// field before a key is pressed.
	EditRate float64 `json:"editRate"`

	// MaxFieldLength caps generated values.
	MaxFieldLength int `json:"maxFieldLength"`
}

// DefaultConfig returns a paging-heavy run that rarely submits.
func DefaultConfig() Config {
	return Config{
		MaxSteps:       50,
		TimeBudget:     2 * time.Minute,
		EditRate:       0.5,
		MaxFieldLength: 5,
		KeyWeights: map[string]int{
			"PgDn":  40,
			"PgUp":  35,
			"PF11":  15,
			"Enter": 10,
		},
	}
}
