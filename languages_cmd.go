package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/language"
	"github.com/dgnsrekt/lingocast/internal/ui"
)

var (
	languagesRemote bool

	languagesCmd = &cobra.Command{
		Use:     "languages",
		Aliases: []string{"langs"},
		Short:   "List the languages tracks can be spoken in",
		Args:    cobra.NoArgs,
		RunE:    runLanguages,
	}
)

func init() {
	languagesCmd.Flags().BoolVarP(&languagesRemote, "remote", "r", false, "ask the audio service instead of the built-in table")
}

func runLanguages(cmd *cobra.Command, _ []string) error {
	if !languagesRemote {
		fmt.Println(ui.RenderLanguages(language.All()))
		return nil
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	names, err := c.Languages(cmd.Context())
	if err != nil {
		return err
	}

	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("%s  %s  %s\n", language.FlagFor(code), code, names[code])
	}
	fmt.Println(faint(fmt.Sprintf("%d languages supported by %s", len(codes), c.BaseURL())))
	return nil
}
