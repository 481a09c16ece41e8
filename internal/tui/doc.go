// Package tui implements the interactive device browser behind
// "wemo-discover browse".
//
// Built on Bubble Tea, it follows the Elm architecture: DiscoveryModel holds
// immutable screen state, Update reacts to key presses and scan results, and
// View renders through RenderApplicationContainer so every state shares the
// same header and footer.
//
// # Framework Components
//
//   - bubbles/spinner: scan-in-progress indicator
//   - bubbles/progress: elapsed share of the scan window
//   - bubbles/list: discovered devices with filtering
//   - bubbles/textinput: manual host entry
//   - bubbles/help: context-aware key help
//   - lipgloss: styling and layout
//
// # Usage Example
//
//	model := tui.NewDiscoveryModel(scan, probe, 5*time.Second)
//	program := tea.NewProgram(model, tea.WithAltScreen())
//	final, err := program.Run()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if device := final.(tui.DiscoveryModel).SelectedDevice(); device != nil {
//	    fmt.Println(device)
//	}
package tui
