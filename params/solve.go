package params

// SolveParameters mirrors solve_parameters(): replace declared Parameter
// objects with their parsed values from supplied, falling back to each
// parameter's default when absent. Freeze parameters ignore supplied
// entirely - they are never presented for user assignment (spec.md 3).
func SolveParameters(declared map[string]*Parameter, supplied map[string]any) (map[string]any, error) {
	solved := make(map[string]any, len(declared))
	for name, p := range declared {
		if _, frozen := p.Type.(Freeze); frozen {
			v, _ := p.Type.Convert(nil)
			solved[name] = v
			continue
		}
		value, ok := supplied[name]
		if !ok {
			value = Unset
		}
		parsed, err := p.Parse(value)
		if err != nil {
			return nil, err
		}
		solved[name] = parsed
	}
	return solved, nil
}
