package cmd

import (
	"fmt"
	"github.com/cpacia/colorswap/core"
	"github.com/cpacia/colorswap/repo"
	"github.com/fatih/color"
	"github.com/op/go-logging"
	"os"
	"os/signal"
)

var log = logging.MustGetLogger("CMD")

// Start is the main entry point for the swap agent. The options to this
// command are the same as the agent config options.
type Start struct {
	repo.Config
}

// Execute starts the swap agent.
func (x *Start) Execute(args []string) error {
	cfg, _, err := repo.LoadConfig()
	if err != nil {
		return err
	}

	n, err := core.NewNode(cfg)
	if err != nil {
		return err
	}
	printSplashScreen()
	if err := n.Start(); err != nil {
		return err
	}
	log.Infof("Relay: %s", cfg.RelayURL)

	waitForInterrupt()
	log.Info("colorswap shutting down...")
	n.Stop()
	return nil
}

func waitForInterrupt() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func printSplashScreen() {
	yellow := color.New(color.FgYellow)
	white := color.New(color.FgWhite)

	for i, l := range []string{
		`               __                                        `,
		`  _________  / /___  ______________      ______ _____    `,
		` / ___/ __ \/ / __ \/ ___/ ___/ | /| / / __ '/ __ \     `,
		`/ /__/ /_/ / / /_/ / /  (__  )| |/ |/ / /_/ / /_/ /      `,
		`\___/\____/_/\____/_/  /____/ |__/|__/\__,_/ .___/       `,
		`                                          /_/            `,
	} {
		if i%2 == 0 {
			if _, err := white.Println(l); err != nil {
				log.Debug(err)
				return
			}
			continue
		}
		if _, err := yellow.Println(l); err != nil {
			log.Debug(err)
			return
		}
	}

	yellow.DisableColor()
	white.DisableColor()
	fmt.Println("")
}
