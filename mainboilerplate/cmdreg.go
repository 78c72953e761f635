package mainboilerplate

import "github.com/jessevdk/go-flags"

// AddCommandFunc adds a sub-command to its parent.
type AddCommandFunc func(*flags.Command) error

// CommandRegistry collects AddCommandFuncs by the dotted path of their parent
// command, so that sub-commands may register themselves from init().
// The root command has an empty path.
type CommandRegistry map[string][]AddCommandFunc

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry { return make(CommandRegistry) }

// AddCommand registers command |name| having |data| under |parent|, which
// is a dotted path such as "" or "export".
func (cr CommandRegistry) AddCommand(parent, name, short, long string, data interface{}) {
	cr[parent] = append(cr[parent], func(cmd *flags.Command) error {
		var _, err = cmd.AddCommand(name, short, long, data)
		return err
	})
}

// AddCommands adds all commands registered under |path| to |cmd|, and then
// recursively adds commands registered under each of the added commands.
func (cr CommandRegistry) AddCommands(path string, cmd *flags.Command) error {
	for _, fn := range cr[path] {
		if err := fn(cmd); err != nil {
			return err
		}
	}
	for _, child := range cmd.Commands() {
		var childPath = child.Name
		if path != "" {
			childPath = path + "." + child.Name
		}
		if len(cr[childPath]) == 0 {
			continue
		}
		if err := cr.AddCommands(childPath, child); err != nil {
			return err
		}
	}
	return nil
}
