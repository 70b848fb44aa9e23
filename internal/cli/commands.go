package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labtiva/esprobe/internal/es"
	"github.com/spf13/cobra"
)

func newHealthCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show cluster health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.session(cmd, streams)
			if err != nil {
				return err
			}
			store, err := s.store()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			s.out.Health(health, s.cfg.DisplayHost())
			if health.Status.Critical() {
				return fmt.Errorf("cluster %s is %s", health.ClusterName, health.Status)
			}
			return nil
		},
	}
}

func newIndexCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create, check, delete and list indices",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an index",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(g, streams, func(cmd *cobra.Command, s *session, store es.Store, args []string) error {
				ack, err := store.CreateIndex(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				s.out.Message("created %s (acknowledged: %t)", args[0], ack)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "exists <name>",
			Short: "Check whether an index exists",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(g, streams, func(cmd *cobra.Command, s *session, store es.Store, args []string) error {
				ok, err := store.IndexExists(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				s.out.Message("%t", ok)
				if !ok {
					return fmt.Errorf("index %s does not exist", args[0])
				}
				return nil
			}),
		},
		newIndexDeleteCommand(g, streams),
		&cobra.Command{
			Use:   "list",
			Short: "List indices",
			Args:  cobra.NoArgs,
			RunE: withClient(g, streams, func(cmd *cobra.Command, s *session, c *es.Client, _ []string) error {
				indices, err := c.ListIndices(cmd.Context())
				if err != nil {
					return err
				}
				s.out.Indices(indices)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "fields <name>",
			Short: "List the mapped fields of an index",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(g, streams, func(cmd *cobra.Command, s *session, c *es.Client, args []string) error {
				fields, err := c.FetchMapping(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				s.out.Fields(args[0], fields)
				return nil
			}),
		},
	)
	return cmd
}

func newIndexDeleteCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an index and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(g, streams, func(cmd *cobra.Command, s *session, store es.Store, args []string) error {
			if !yes {
				ok, err := confirm(streams, fmt.Sprintf("Delete index %s and all its documents?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("aborted")
				}
			}
			ack, err := store.DeleteIndex(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.out.Message("deleted %s (acknowledged: %t)", args[0], ack)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newDocCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Put, get and delete documents",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "put <index> <id> [json|-]",
			Short: "Store a JSON document, read from stdin when no body is given",
			Args:  cobra.RangeArgs(2, 3),
			RunE: withStore(g, streams, func(cmd *cobra.Command, s *session, store es.Store, args []string) error {
				body, err := readBody(args[2:], streams.In)
				if err != nil {
					return err
				}
				created, err := store.PutDocument(cmd.Context(), args[0], args[1], body)
				if err != nil {
					return err
				}
				result := "updated"
				if created {
					result = "created"
				}
				s.out.Message("%s %s/%s", result, args[0], args[1])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "get <index> <id>",
			Short: "Fetch a document by id",
			Args:  cobra.ExactArgs(2),
			RunE: withStore(g, streams, func(cmd *cobra.Command, s *session, store es.Store, args []string) error {
				doc, err := store.GetDocument(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				s.out.Document(doc)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <index> <id>",
			Short: "Delete a document by id",
			Args:  cobra.ExactArgs(2),
			RunE: withStore(g, streams, func(cmd *cobra.Command, s *session, store es.Store, args []string) error {
				deleted, err := store.DeleteDocument(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("%s/%s was not deleted", args[0], args[1])
				}
				s.out.Message("deleted %s/%s", args[0], args[1])
				return nil
			}),
		},
	)
	return cmd
}

func newSearchCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	var (
		wildcard string
		size     int
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "search <index> [query]",
		Short: "Search an index with a query_string or wildcard query",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildSearch(args[1:], wildcard, size)
			if err != nil {
				return err
			}

			s, err := g.session(cmd, streams)
			if err != nil {
				return err
			}

			if validate {
				c, err := s.client()
				if err != nil {
					return err
				}
				defer c.Close()

				res, err := c.ValidateSearch(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				s.out.Validation(res)
				if !res.Valid {
					return fmt.Errorf("invalid query")
				}
				return nil
			}

			store, err := s.store()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Search(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			s.out.Search(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&wildcard, "wildcard", "", "wildcard query as field=pattern")
	cmd.Flags().IntVar(&size, "size", 10, "maximum number of hits")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the query instead of running it")
	return cmd
}

// buildSearch turns the positional query and --wildcard into a request.
// Without either it matches everything.
func buildSearch(args []string, wildcard string, size int) (es.SearchRequest, error) {
	req := es.SearchRequest{Size: size}
	if size < 0 {
		return req, fmt.Errorf("size must not be negative")
	}
	if len(args) > 0 && wildcard != "" {
		return req, fmt.Errorf("use either a query or --wildcard, not both")
	}

	switch {
	case wildcard != "":
		field, pattern, ok := strings.Cut(wildcard, "=")
		if !ok || field == "" {
			return req, fmt.Errorf("--wildcard wants field=pattern, got %q", wildcard)
		}
		req.Query = es.Wildcard(field, pattern)
	case len(args) > 0:
		req.Query = es.QueryString(args[0])
	default:
		req.Query = es.MatchAll()
	}
	return req, nil
}

func newRequestCommand(g *globalFlags, streams *IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "request <METHOD> <path> [body|-]",
		Short: "Send a raw request and print the response",
		Args:  cobra.RangeArgs(2, 3),
		RunE: withClient(g, streams, func(cmd *cobra.Command, s *session, c *es.Client, args []string) error {
			method := strings.ToUpper(args[0])
			var body string
			if len(args) == 3 {
				b, err := readBody(args[2:], streams.In)
				if err != nil {
					return err
				}
				body = string(b)
			}

			res := c.Request(cmd.Context(), method, args[1], body)
			if res.Error != nil {
				return res.Error
			}
			s.out.Request(method, args[1], &res)
			if res.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("request failed with status %d", res.StatusCode)
			}
			return nil
		}),
	}
}

// readBody takes the body from args, or from in when args is empty or "-".
func readBody(args []string, in io.Reader) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return b, nil
}

type storeFunc func(cmd *cobra.Command, s *session, store es.Store, args []string) error

func withStore(g *globalFlags, streams *IOStreams, fn storeFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := g.session(cmd, streams)
		if err != nil {
			return err
		}
		store, err := s.store()
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, s, store, args)
	}
}

type clientFunc func(cmd *cobra.Command, s *session, c *es.Client, args []string) error

func withClient(g *globalFlags, streams *IOStreams, fn clientFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := g.session(cmd, streams)
		if err != nil {
			return err
		}
		c, err := s.client()
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cmd, s, c, args)
	}
}
