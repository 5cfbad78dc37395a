package googleauth

import "context"

// Fake is a Provider for tests. Codes map to canned claims; unknown
// codes return Err.
type Fake struct {
	Codes map[string]Claims
	Err   error
}

func (f *Fake) Exchange(_ context.Context, code string) (Claims, error) {
	if c, ok := f.Codes[code]; ok {
		return c, nil
	}
	if f.Err != nil {
		return Claims{}, f.Err
	}
	return Claims{}, ErrCodeInvalid
}
