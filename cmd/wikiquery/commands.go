package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wikiquery/pkg/config"
	"wikiquery/pkg/wiki/query"
)

func newInitConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Generate a default config file and exit",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GenerateDefault(a.configPath); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(a.errOut, "Config file generated: %s\n", a.configPath)
			return nil
		},
	}
}

type templateInfo struct {
	Name     string   `json:"name"`
	Module   string   `json:"module"`
	Limit    string   `json:"limit_param,omitempty"`
	Result   string   `json:"result_key"`
	Required []string `json:"required,omitempty"`
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the query templates usable with 'raw'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []templateInfo
			for _, name := range query.Names() {
				t, _ := query.Lookup(name)
				infos = append(infos, templateInfo{
					Name:     t.Name(),
					Module:   t.Module(),
					Limit:    t.LimitParam(),
					Result:   t.ResultKey(),
					Required: t.Required(),
				})
			}
			return a.emit(infos)
		},
	}
}

func newRawCmd(a *app) *cobra.Command {
	var (
		sets  []string
		limit int
		pages int
	)
	cmd := &cobra.Command{
		Use:   "raw TEMPLATE...",
		Short: "Run catalog templates with custom parameters and print every reply page",
		Long: `Combines one or more catalog templates into a single query, follows
continuation and prints each reply page as JSON. Parameters are given as
--set key=value; multi-valued parameters use "|" as separator.`,
		Example: `  wikiquery raw categorymembers --set cmtitle=Category:Birds --limit 20 --jq '.query.categorymembers[].title' -r`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := make([]query.Template, 0, len(args))
			for _, name := range args {
				t, ok := query.Lookup(name)
				if !ok {
					return fmt.Errorf("unknown template %q, see 'wikiquery templates'", name)
				}
				templates = append(templates, t)
			}
			params, err := parseSet(sets)
			if err != nil {
				return err
			}

			s := a.wiki.Coordinator().NewSession(templates...).WithTotalLimit(limit)
			for k, v := range params {
				s.Set(k, v)
			}

			for n := 0; s.HasNext() && (pages <= 0 || n < pages); n++ {
				page, err := s.Next(cmd.Context())
				if err != nil {
					return err
				}
				switch page.Status {
				case query.PageFailed:
					return page.Err
				case query.PageExhausted:
					return nil
				}
				if err := a.emit(page.Reply.Raw()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Request parameter as key=value (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items over all pages (0 = unbounded)")
	cmd.Flags().IntVar(&pages, "pages", 0, "Maximum number of reply pages (0 = unbounded)")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories TITLE...",
		Short: "List the categories of each page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.CategoriesOnPage(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
}

func newMembersCmd(a *app) *cobra.Command {
	var (
		limit int
		ns    []int
	)
	cmd := &cobra.Command{
		Use:   "members CATEGORY",
		Short: "List the members of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.CategoryMembers(cmd.Context(), args[0], limit, toNS(ns)...)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of members (0 = all)")
	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Only members in these namespace ids")
	return cmd
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists TITLE...",
		Short: "Report whether each page exists",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.Exists(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
}

func newTextCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "text TITLE...",
		Short: "Print the current wikitext of each page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.PageText(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
}

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract TITLE...",
		Short: "Print the plain-text intro of each page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.TextExtracts(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
}

func newLinksCmd(a *app) *cobra.Command {
	var ns []int
	cmd := &cobra.Command{
		Use:   "links TITLE...",
		Short: "List the wiki links on each page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.LinksOnPage(cmd.Context(), args, toNS(ns)...)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Only links into these namespace ids")
	return cmd
}

func newRedirectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redirects TITLE...",
		Short: "Resolve each title to its redirect target",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.ResolveRedirects(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit int
		ns    []int
	)
	cmd := &cobra.Command{
		Use:   "search TEXT...",
		Short: "Full-text search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.Search(cmd.Context(), strings.Join(args, " "), limit, toNS(ns)...)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of hits (0 = all)")
	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Only hits in these namespace ids")
	return cmd
}

func newContribsCmd(a *app) *cobra.Command {
	var (
		limit      int
		olderFirst bool
		ns         []int
	)
	cmd := &cobra.Command{
		Use:   "contribs USER",
		Short: "List a user's contributions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.wiki.Contribs(cmd.Context(), args[0], limit, olderFirst, toNS(ns)...)
			if err != nil {
				return err
			}
			return a.emit(res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of edits (0 = all)")
	cmd.Flags().BoolVar(&olderFirst, "older-first", false, "Oldest edits first")
	cmd.Flags().IntSliceVar(&ns, "ns", nil, "Only edits in these namespace ids")
	return cmd
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the client acts as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.wiki.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(info)
		},
	}
}
