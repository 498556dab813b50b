/*
Package dsl provides a Go DSL for programmatically constructing workbooks.

It lets developers define variables, formulas, tables and triggers with a
fluent builder instead of YAML or JSON files. This is useful for generated
workbooks, unit tests and IDE autocompletion.

Example usage:

	b := dsl.New("payroll").Named("Payroll")

	main := b.Blueprint("main")
	main.Float("Global", "Hours", "40")
	main.Float("Global", "Rate", "12.5")
	main.Float("Global", "Pay", "")
	main.Expression("Hours * Rate").
		From(dsl.Float("Global", "Hours"), dsl.Float("Global", "Rate")).
		Into(dsl.Float("Global", "Pay"))

	// The result can be served by an in-memory loader.
	loader, err := b.Loader()
	// ... pass loader to recalc.New("", recalc.WithLoader(loader))
*/
package dsl
