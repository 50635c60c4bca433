/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing dialogs.

It allows developers to define dialogs using a type-safe, fluent builder pattern
instead of relying on external YAML files. This is particularly useful for unit
testing, embedding, and leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New()

	b.Dialog("root").
		OnIntent("JokeIntent").Call("joke").Dialog().
		OnFallback().Send("Ask me for a joke!")

	b.Dialog("joke").
		OnBegin().
		Send("Why did the chicken cross the road?").
		Wait().
		Send("To get to the other side").
		End()

	dialogs, err := b.Build()
	// ... pass to botbuilder.New(store, botbuilder.WithDialogs(dialogs...))
*/
package dsl
