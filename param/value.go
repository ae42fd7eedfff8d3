package param

import (
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

// Value is the current value of a configuration value. It is one of
// IntValue, UintValue, FloatValue, BoolValue, EnumValue, TypeValue,
// TargetValue or LoopLevelValue.
type Value interface {
	isValue()
}

type (
	IntValue       int64
	UintValue      uint64
	FloatValue     float64
	BoolValue      bool
	EnumValue      string
	TypeValue      elemtype.Type
	TargetValue    target.Target
	LoopLevelValue pipeline.LoopLevel
)

func (IntValue) isValue()       {}
func (UintValue) isValue()      {}
func (FloatValue) isValue()     {}
func (BoolValue) isValue()      {}
func (EnumValue) isValue()      {}
func (TypeValue) isValue()      {}
func (TargetValue) isValue()    {}
func (LoopLevelValue) isValue() {}

// Kind is the declared kind of a configuration value.
type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindFloat
	KindBool
	KindEnum
	KindType
	KindTarget
	KindLoopLevel
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindType:
		return "type"
	case KindTarget:
		return "target"
	case KindLoopLevel:
		return "loop_level"
	}
	return "unknown"
}

func kindOf(v Value) (Kind, bool) {
	switch v.(type) {
	case IntValue:
		return KindInt, true
	case UintValue:
		return KindUint, true
	case FloatValue:
		return KindFloat, true
	case BoolValue:
		return KindBool, true
	case EnumValue:
		return KindEnum, true
	case TypeValue:
		return KindType, true
	case TargetValue:
		return KindTarget, true
	case LoopLevelValue:
		return KindLoopLevel, true
	}
	return 0, false
}
