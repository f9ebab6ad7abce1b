package dice

import "go.uber.org/zap"

// Roller pairs a Source with a logger so every roll leaves a debug trace.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller.
//
// Precondition: src must be non-nil. A nil logger is replaced by zap.NewNop.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source exposes the underlying randomness provider.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates n and logs the result at debug level.
func (r *Roller) Roll(n Notation) Result {
	res := Roll(n, r.src)
	r.logger.Debug("dice roll",
		zap.String("notation", res.Notation),
		zap.Ints("dice", res.Dice),
		zap.Int("modifier", res.Modifier),
		zap.Int("total", res.Total()),
	)
	return res
}

// RollString parses s and rolls it.
func (r *Roller) RollString(s string) (Result, error) {
	n, err := Parse(s)
	if err != nil {
		return Result{}, err
	}
	return r.Roll(n), nil
}
