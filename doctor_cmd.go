package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/deps"
	"github.com/dgnsrekt/lingocast/internal/proc"
)

var (
	doctorRemote bool

	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Check that the audio tools are installed",
		Long:  paragraph(fmt.Sprintf("\n%s for ffmpeg, ffprobe and gtts-cli locally, or ask a running audio service with --remote.", keyword("Check"))),
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
)

func init() {
	doctorCmd.Flags().BoolVarP(&doctorRemote, "remote", "r", false, "check the audio service instead of this machine")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if doctorRemote {
		c, err := newClient()
		if err != nil {
			return err
		}
		h, err := c.Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", c.BaseURL(), keyword(h.Status))
		if !h.FFmpegAvailable {
			return errors.New(deps.MissingMessage(h.MissingTools))
		}
		fmt.Printf("%d languages supported\n", len(h.SupportedLanguages))
		return nil
	}

	tools := []string{deps.FFmpeg.Name, deps.FFprobe.Name}
	if !strings.EqualFold(cfg.TTS.Engine, "mock") {
		tools = append(tools, deps.GTTSCLI.Name)
	}
	results := deps.Report(cmd.Context(), proc.NewExec(0), tools...)
	fmt.Print(deps.Render(results))

	var missing []string
	for _, r := range results {
		if !r.OK() {
			missing = append(missing, r.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools: %s", strings.Join(missing, ", "))
	}
	return nil
}
