// Package rules decides building placements over encrypted inputs.
// Every evaluation runs the same sequence of engine operations no matter
// what the ciphertexts hold.
package rules

import (
	"fmt"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
)

// Outcome is the result of evaluating one placement.
// All three values derive from the same accept decision.
type Outcome struct {
	NewTile    fhe.EncryptedU8
	NewBalance fhe.EncryptedU64
	Status     fhe.EncryptedU8
}

// Evaluator applies the placement rules
type Evaluator struct {
	engine fhe.Engine
}

// New creates a new Evaluator
func New(engine fhe.Engine) *Evaluator {
	return &Evaluator{engine: engine}
}

// Evaluate computes the tile, balance and status that result from proposing
// a building on a tile. Rejections are encoded in the status, never returned
// as errors; an error means an operand failed authentication.
func (e *Evaluator) Evaluate(proposed, existing fhe.EncryptedU8, balance fhe.EncryptedU64) (Outcome, error) {
	p := &program{engine: e.engine}

	// Validity and cost share the four type tests
	isValid := p.falseConst()
	cost := p.u64(0)
	for _, b := range model.Catalog {
		isType := p.eq(proposed, p.u8(uint8(b.Type)))
		isValid = p.or(isValid, isType)
		cost = p.select64(isType, p.u64(b.Cost), cost)
	}

	isEmpty := p.eq(existing, p.u8(model.EmptyTile))
	hasFunds := p.ge(balance, cost)
	canPlace := p.and(p.and(isValid, isEmpty), hasFunds)

	newTile := p.select8(canPlace, proposed, existing)
	spend := p.select64(canPlace, cost, p.u64(0))
	newBalance := p.sub(balance, spend)

	status := p.u8(uint8(model.StatusSuccess))
	status = p.select8(p.not(isValid), p.u8(uint8(model.StatusInvalidBuilding)), status)
	status = p.select8(p.and(isValid, p.not(isEmpty)), p.u8(uint8(model.StatusTileTaken)), status)
	status = p.select8(p.and(p.and(isValid, isEmpty), p.not(hasFunds)), p.u8(uint8(model.StatusInsufficientFunds)), status)
	status = p.select8(canPlace, p.u8(uint8(model.StatusSuccess)), status)

	if p.err != nil {
		return Outcome{}, fmt.Errorf("evaluate placement: %w", p.err)
	}
	return Outcome{NewTile: newTile, NewBalance: newBalance, Status: status}, nil
}

// program threads the first engine error through a straight-line sequence
// of operations. Once err is set, every further step is a no-op.
type program struct {
	engine fhe.Engine
	err    error
}

func (p *program) u8(v uint8) fhe.EncryptedU8 {
	if p.err != nil {
		return fhe.EncryptedU8{}
	}
	var ct fhe.EncryptedU8
	ct, p.err = p.engine.TrivialEncryptU8(v)
	return ct
}

func (p *program) u64(v uint64) fhe.EncryptedU64 {
	if p.err != nil {
		return fhe.EncryptedU64{}
	}
	var ct fhe.EncryptedU64
	ct, p.err = p.engine.TrivialEncryptU64(v)
	return ct
}

func (p *program) falseConst() fhe.EncryptedBool {
	if p.err != nil {
		return fhe.EncryptedBool{}
	}
	var ct fhe.EncryptedBool
	ct, p.err = p.engine.TrivialEncryptBool(false)
	return ct
}

func (p *program) eq(a, b fhe.EncryptedU8) fhe.EncryptedBool {
	if p.err != nil {
		return fhe.EncryptedBool{}
	}
	var ct fhe.EncryptedBool
	ct, p.err = p.engine.EqU8(a, b)
	return ct
}

func (p *program) ge(a, b fhe.EncryptedU64) fhe.EncryptedBool {
	if p.err != nil {
		return fhe.EncryptedBool{}
	}
	var ct fhe.EncryptedBool
	ct, p.err = p.engine.GeU64(a, b)
	return ct
}

func (p *program) and(a, b fhe.EncryptedBool) fhe.EncryptedBool {
	if p.err != nil {
		return fhe.EncryptedBool{}
	}
	var ct fhe.EncryptedBool
	ct, p.err = p.engine.And(a, b)
	return ct
}

func (p *program) or(a, b fhe.EncryptedBool) fhe.EncryptedBool {
	if p.err != nil {
		return fhe.EncryptedBool{}
	}
	var ct fhe.EncryptedBool
	ct, p.err = p.engine.Or(a, b)
	return ct
}

func (p *program) not(a fhe.EncryptedBool) fhe.EncryptedBool {
	if p.err != nil {
		return fhe.EncryptedBool{}
	}
	var ct fhe.EncryptedBool
	ct, p.err = p.engine.Not(a)
	return ct
}

func (p *program) select8(cond fhe.EncryptedBool, a, b fhe.EncryptedU8) fhe.EncryptedU8 {
	if p.err != nil {
		return fhe.EncryptedU8{}
	}
	var ct fhe.EncryptedU8
	ct, p.err = p.engine.SelectU8(cond, a, b)
	return ct
}

func (p *program) select64(cond fhe.EncryptedBool, a, b fhe.EncryptedU64) fhe.EncryptedU64 {
	if p.err != nil {
		return fhe.EncryptedU64{}
	}
	var ct fhe.EncryptedU64
	ct, p.err = p.engine.SelectU64(cond, a, b)
	return ct
}

func (p *program) sub(a, b fhe.EncryptedU64) fhe.EncryptedU64 {
	if p.err != nil {
		return fhe.EncryptedU64{}
	}
	var ct fhe.EncryptedU64
	ct, p.err = p.engine.SubU64(a, b)
	return ct
}
