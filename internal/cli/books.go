package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"booknotes/internal/book"
)

// formFlags binds the fields of the add and edit dialogs to flags.
type formFlags struct {
	title       string
	author      string
	cover       string
	tags        []string
	status      string
	rating      string
	description string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Book title")
	cmd.Flags().StringVar(&f.author, "author", "", "Book author")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Cover image URL")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&f.status, "status", "", "reading, finished or wishlist")
	cmd.Flags().StringVar(&f.rating, "rating", "", "Rating from 1 to 5")
	cmd.Flags().StringVar(&f.description, "description", "", "Short description")
}

// apply copies the flags the user set onto form.
func (f *formFlags) apply(cmd *cobra.Command, form *book.Form) {
	changed := cmd.Flags().Changed
	if changed("title") {
		form.Title = f.title
	}
	if changed("author") {
		form.Author = f.author
	}
	if changed("cover") {
		form.CoverURL = f.cover
	}
	if changed("tag") {
		form.Tags = nil
		for _, t := range f.tags {
			form.AddTag(t)
		}
	}
	if changed("status") {
		form.Status = f.status
	}
	if changed("rating") {
		form.Rating = book.RatingInput(f.rating)
	}
	if changed("description") {
		form.Description = f.description
	}
}

func (a *app) addCmd() *cobra.Command {
	var flags formFlags
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a book",
		Example: `  booknotes add --title "Dune" --author "Frank Herbert" --tag sci-fi --status wishlist`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := book.Form{Status: string(book.StatusWishlist)}
			flags.apply(cmd, &form)

			b, err := a.client.AddBook(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added #%d %s\n", b.ID, b.Title)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		statuses []string
		toggles  book.StatusFilter
	)
	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List books",
		Long: `List books whose title, author or tags contain the query.

Without status flags every status is shown. --reading, --finished and
--wishlist show only the statuses given; --status takes a comma separated list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := book.Query{Statuses: book.AllStatuses()}
			if len(args) == 1 {
				q.Q = args[0]
			}

			flags := cmd.Flags()
			switch {
			case flags.Changed("status"):
				f, err := book.ParseStatusFilter(map[string][]string{"status": statuses})
				if err != nil {
					return err
				}
				q.Statuses = f
			case flags.Changed("reading") || flags.Changed("finished") || flags.Changed("wishlist"):
				q.Statuses = toggles
			}

			books, err := a.client.ListBooks(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(out, "No books found")
				return nil
			}
			printTable(out, books)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show these statuses (comma separated)")
	cmd.Flags().BoolVar(&toggles.Reading, "reading", false, "Show books being read")
	cmd.Flags().BoolVar(&toggles.Finished, "finished", false, "Show finished books")
	cmd.Flags().BoolVar(&toggles.Wishlist, "wishlist", false, "Show wishlist books")
	cmd.MarkFlagsMutuallyExclusive("status", "reading")
	cmd.MarkFlagsMutuallyExclusive("status", "finished")
	cmd.MarkFlagsMutuallyExclusive("status", "wishlist")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.client.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			printBook(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var (
		flags   formFlags
		addTags []string
		rmTags  []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a book",
		Long:  `Edit a book. Fields without a flag keep their current value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.client.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}

			form := book.FormFromBook(current)
			flags.apply(cmd, &form)
			for _, t := range addTags {
				form.AddTag(t)
			}
			for _, t := range rmTags {
				form.RemoveTag(t)
			}

			b, err := a.client.UpdateBook(cmd.Context(), id, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated #%d %s\n", b.ID, b.Title)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&addTags, "add-tag", nil, "Add a tag (repeatable)")
	cmd.Flags().StringArrayVar(&rmTags, "rm-tag", nil, "Remove a tag (repeatable)")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a book",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				b, err := a.client.GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %q by %s?", b.Title, b.Author)) {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}
			if err := a.client.DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Deleted #%d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *app) tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove tags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <id> <tag>",
			Short: "Add a tag to a book",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				b, err := a.client.AddTag(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ #%d tags: %s\n", b.ID, strings.Join(b.Tags, ", "))
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <id> <tag>",
			Short: "Remove a tag from a book",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				b, err := a.client.RemoveTag(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ #%d tags: %s\n", b.ID, strings.Join(b.Tags, ", "))
				return nil
			},
		},
	)
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func printTable(w io.Writer, books []book.Book) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tRATING\tTAGS")
	for _, b := range books {
		rating := "-"
		if b.Rating != nil {
			rating = strings.Repeat("★", *b.Rating)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.Status, rating, strings.Join(b.Tags, ", "))
	}
	tw.Flush()
}

func printBook(w io.Writer, b book.Book) {
	fmt.Fprintf(w, "#%d %s\n", b.ID, b.Title)
	fmt.Fprintf(w, "   Author: %s\n", b.Author)
	fmt.Fprintf(w, "   Status: %s\n", b.Status)
	if b.Rating != nil {
		fmt.Fprintf(w, "   Rating: %d/5\n", *b.Rating)
	}
	if len(b.Tags) > 0 {
		fmt.Fprintf(w, "   Tags: %s\n", strings.Join(b.Tags, ", "))
	}
	fmt.Fprintf(w, "   Added: %s\n", b.DateAdded)
	if b.DateFinished != "" {
		fmt.Fprintf(w, "   Finished: %s\n", b.DateFinished)
	}
	fmt.Fprintf(w, "   Notes: %d\n", b.NotesCount)
	fmt.Fprintf(w, "   Cover: %s\n", b.CoverURL)
	if b.Description != "" {
		fmt.Fprintf(w, "   Description: %s\n", b.Description)
	}
}
