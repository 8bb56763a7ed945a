package handler

import "fmt"

// Chained applies every handler's Save in order, and unions every handler's
// Load result (map data only) - ported from ChainedHandler in handlers.py.
type Chained struct {
	Handlers []FileHandler
}

func (c Chained) Save(dir string, ref TargetRef, data any) error {
	for _, h := range c.Handlers {
		if err := h.Save(dir, ref, data); err != nil {
			return err
		}
	}
	return nil
}

func (c Chained) Load(dir string, ref TargetRef) (any, error) {
	union := map[string]any{}
	for _, h := range c.Handlers {
		v, err := h.Load(dir, ref)
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("handler: Chained.Load requires dict-like handler results, got %T", v)
		}
		for k, val := range m {
			union[k] = val
		}
	}
	return union, nil
}

// NewFileHandler builds a FileHandler from a slice (chained) or a single
// handler, mirroring file_handler() in the original.
func NewFileHandler(handlers ...FileHandler) FileHandler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return Chained{Handlers: handlers}
}
