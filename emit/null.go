package emit

import "context"

// Null discards every event. Used as the default Emitter when a caller
// doesn't care to observe a run (e.g. in unit tests of the engine itself).
type Null struct{}

func (Null) Emit(Event)                                  {}
func (Null) EmitBatch(context.Context, []Event) error     { return nil }
func (Null) Flush(context.Context) error                  { return nil }
