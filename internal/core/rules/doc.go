// Package rules holds the named values of a ruleset and resolves them.
//
// A Context aggregates state tags, attributes, modifiers, equations and
// conditionals. Attributes carry base numbers; modifiers add to a target
// while their condition holds; equations and conditionals are formulas
// evaluated on demand against the same Context. References between entries
// are resolved lazily, so entries may be inserted in any order.
package rules
