package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucacasonato/esbuild-deno-loader/specifier"
)

// record is one resolution in --json output.
type record struct {
	Specifier string `json:"specifier"`
	Referrer  string `json:"referrer"`
	Resolved  string `json:"resolved,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Path      string `json:"path,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Loader    string `json:"loader,omitempty"`
	Error     string `json:"error,omitempty"`
}

// batchFile is the YAML manifest read by resolve --batch.
type batchFile struct {
	Referrer   string       `yaml:"referrer"`
	Specifiers []batchEntry `yaml:"specifiers"`
}

type batchEntry struct {
	Specifier string `yaml:"specifier"`
	Referrer  string `yaml:"referrer"`
}

// UnmarshalYAML accepts a plain string as shorthand for an entry without a
// referrer.
func (e *batchEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Specifier = node.Value
		return nil
	}
	type plain batchEntry
	return node.Decode((*plain)(e))
}

func loadBatch(r io.Reader) (*batchFile, error) {
	var b batchFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	for i, e := range b.Specifiers {
		if e.Specifier == "" {
			return nil, fmt.Errorf("batch entry %d has no specifier", i)
		}
	}
	return &b, nil
}

func newResolveCmd() *cobra.Command {
	var (
		referrer  string
		batchPath string
	)

	cmd := &cobra.Command{
		Use:   "resolve [specifier...]",
		Short: "Resolve specifiers against the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}
			if referrer == "" {
				referrer = t.defaultReferrer()
			}

			entries := make([]batchEntry, 0, len(args))
			for _, a := range args {
				entries = append(entries, batchEntry{Specifier: a})
			}
			if batchPath != "" {
				f, err := os.Open(batchPath)
				if err != nil {
					return err
				}
				b, err := loadBatch(f)
				f.Close()
				if err != nil {
					return err
				}
				for _, e := range b.Specifiers {
					if e.Referrer == "" {
						e.Referrer = b.Referrer
					}
					entries = append(entries, e)
				}
			}
			if len(entries) == 0 {
				return fmt.Errorf("no specifiers given")
			}

			s, err := openSession(cmd.Context(), t)
			if err != nil {
				return err
			}
			defer s.Close()

			records := resolveAll(s, entries, referrer)
			return writeRecords(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&referrer, "referrer", "", "Referrer URL (default: the working directory)")
	cmd.Flags().StringVar(&batchPath, "batch", "", "YAML file listing specifiers to resolve")
	return cmd
}

func resolveAll(s resolverSession, entries []batchEntry, referrer string) []record {
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		ref := e.Referrer
		if ref == "" {
			ref = referrer
		}
		records = append(records, resolveOne(s, e.Specifier, ref))
	}
	return records
}

func resolveOne(s resolverSession, spec, referrer string) record {
	rec := record{Specifier: spec, Referrer: referrer}
	resolved, err := s.Resolve(spec, referrer)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	rec.Resolved = resolved
	annotate(&rec)
	return rec
}

// annotate fills the esbuild namespace, path and media type of a resolved
// record.
func annotate(rec *record) {
	u, err := url.Parse(rec.Resolved)
	if err != nil {
		return
	}
	if res, err := specifier.ToEsbuild(u); err == nil {
		rec.Namespace = res.Namespace
		rec.Path = res.Path
	}
	mt := specifier.MediaTypeFromSpecifier(u)
	rec.MediaType = string(mt)
	rec.Loader = specifier.Loader(mt)
}

func writeRecords(w io.Writer, records []record) error {
	failed := 0
	for _, r := range records {
		if r.Error != "" {
			failed++
		}
	}
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return err
		}
	} else {
		for _, r := range records {
			if r.Error != "" {
				fmt.Fprintf(w, "%s: error: %s\n", r.Specifier, r.Error)
				continue
			}
			fmt.Fprintf(w, "%s -> %s\n", r.Specifier, r.Resolved)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d specifiers failed to resolve", failed, len(records))
	}
	return nil
}
