/*
Package recalc is a recalculation engine for spreadsheet-like workbooks.

A workbook declares typed variables, the expressions that compute some of
them from others, tables whose cells follow variables, and triggers that
combine boolean conditions. Starting a session turns the workbook into a
graph of actors, one per variable, expression and table. A value change
propagates through the graph until it settles, and propagation stops as soon
as a variable receives the value it already holds.

# Usage

	eng, err := recalc.New("./workbooks")
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Shutdown(context.Background())

	result, err := eng.Evaluate(ctx, domain.EvaluationRequest{
		WorkbookID: "payroll",
		DataVariables: []domain.VariableInput{
			{Name: "Hours", Namespace: "Global", Value: "38"},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	pay, _ := result.Lookup("Global", "Pay")
	fmt.Println(pay.Value)

Live sessions stay open between updates:

	s, err := eng.Open(ctx, "payroll", domain.LevelInfo, "")
	_ = s.Update(ctx, domain.VariableInput{Name: "Rate", Namespace: "Global", Value: "13"})
	state, _ := s.State(ctx)
	result, _ := s.Close(ctx)

Closing a session hands its final state and log off to the result store and
to every configured sink.
*/
package recalc
