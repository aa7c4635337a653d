/*
Package cli provides terminal helpers for the kestrel command.

Startup indicator:

	signal := cli.StartSpinner(production && isTerminal, os.Stdout, logger)
	// resolve models, build routes ...
	signal.Done()

When the spinner is disabled StartSpinner returns nil and Done is a no-op,
so callers never branch on it.

Command output:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Results implementing Tabular print as a table in text mode.
*/
package cli
