// Package formula implements the expression language used by equations and
// conditionals.
//
// A formula is parsed once into a Tree and evaluated many times against a
// Resolver that supplies the values of the tags it references. The language
// has numbers, the literals true and false, tag references, arithmetic,
// comparisons, boolean logic, a ternary operator and two indirect lookups:
//
//	atr.1 + 3
//	lhs.year < rhs.year || (lhs.year == rhs.year && lhs.day < rhs.day)
//	state.hasted ? speed * 2 : speed
//	sqrt(level) + (level :: spell.slots)
//
// Precedence, from loosest to tightest:
//
//	? :                      ternary, right-associative
//	||                       or
//	&&                       and
//	== != < <= > >=          comparison
//	+ -                      add, subtract
//	* /                      multiply, divide
//	^ pow                    power, right-associative
//	- ! sqrt round roundup rounddown   prefix
//	:: find                  indirect lookup
//
// Every value is either a float32 or a bool; using one where the other is
// expected is an evaluation error, never a coercion.
package formula
