package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvfile/pkg/store"
)

// operation is a store command shared by the cobra tree and the shell
type operation struct {
	name    string
	args    []string
	short   string
	example string
	run     func(o *rootOptions, w io.Writer, args []string) error
}

// usage returns the command synopsis, e.g. "insert <key> <value>"
func (op operation) usage() string {
	if len(op.args) == 0 {
		return op.name
	}
	return op.name + " <" + strings.Join(op.args, "> <") + ">"
}

var operations = []operation{
	{
		name:    "insert",
		args:    []string{"key", "value"},
		short:   "Insert a new key-value pair",
		example: "kvfile insert mykey myvalue",
		run: func(o *rootOptions, w io.Writer, args []string) error {
			return o.withStore("insert", func(kv *store.KVStore) error {
				if err := kv.Insert([]byte(args[0]), []byte(args[1])); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "Inserted key '%s'\n", args[0])
				return err
			})
		},
	},
	{
		name:    "get",
		args:    []string{"key"},
		short:   "Print the value stored under a key",
		example: "kvfile get mykey",
		run: func(o *rootOptions, w io.Writer, args []string) error {
			return o.withStore("get", func(kv *store.KVStore) error {
				value, err := kv.Get([]byte(args[0]))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "%s\n", value)
				return err
			})
		},
	},
	{
		name:    "update",
		args:    []string{"key", "value"},
		short:   "Replace the value of an existing key",
		example: "kvfile update mykey newvalue",
		run: func(o *rootOptions, w io.Writer, args []string) error {
			return o.withStore("update", func(kv *store.KVStore) error {
				if err := kv.Update([]byte(args[0]), []byte(args[1])); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "Updated key '%s'\n", args[0])
				return err
			})
		},
	},
	{
		name:    "delete",
		args:    []string{"key"},
		short:   "Delete a key-value pair",
		example: "kvfile delete mykey",
		run: func(o *rootOptions, w io.Writer, args []string) error {
			return o.withStore("delete", func(kv *store.KVStore) error {
				if err := kv.Delete([]byte(args[0])); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "Deleted key '%s'\n", args[0])
				return err
			})
		},
	},
	{
		name:    "list",
		short:   "Print every key, one per line",
		example: "kvfile list",
		run: func(o *rootOptions, w io.Writer, _ []string) error {
			return o.withStore("list", func(kv *store.KVStore) error {
				keys, err := kv.Keys()
				if err != nil {
					return err
				}
				for _, key := range keys {
					if _, err := fmt.Fprintf(w, "%s\n", key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	},
	{
		name:    "verify",
		short:   "Check the checksum of every record",
		example: "kvfile verify",
		run: func(o *rootOptions, w io.Writer, _ []string) error {
			return o.withStore("verify", func(kv *store.KVStore) error {
				stats, err := kv.Stats()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "OK: %d records, %d bytes in %s\n", stats.Keys, stats.DataSize, kv.Path())
				return err
			})
		},
	},
}

// lookupOperation finds an operation by name
func lookupOperation(name string) (operation, bool) {
	for _, op := range operations {
		if op.name == name {
			return op, true
		}
	}
	return operation{}, false
}

func newOperationCommand(opts *rootOptions, op operation) *cobra.Command {
	return &cobra.Command{
		Use:   op.usage(),
		Short: op.short,
		Long: op.short + `.

Example:
  ` + op.example,
		Args: cobra.ExactArgs(len(op.args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return op.run(opts, cmd.OutOrStdout(), args)
		},
	}
}
