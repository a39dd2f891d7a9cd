// Package domain contains the bill aggregate and the values derived from it.
// Constructors here are the only way to obtain a ValidatedBill, so every
// instance already satisfies subtotal == sum of line amounts and
// total == subtotal + tax. The package has no infrastructure dependencies.
package domain
