package env

import "fmt"

// Environment is read from ENV and decides, among other things, how the
// server logs.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

func (e *Environment) UnmarshalText(text []byte) error {
	switch env := Environment(text); env {
	case Development, Production, Test:
		*e = env
		return nil
	default:
		return fmt.Errorf("unknown environment %q (valid: development, production, test)", text)
	}
}

func (e Environment) IsProduction() bool { return e == Production }
