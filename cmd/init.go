package cmd

import (
	"errors"
	"fmt"
	"github.com/cpacia/colorswap/repo"
	"os"
)

// Init initializes a new colorswap data directory.
type Init struct {
	DataDir  string `short:"d" long:"datadir" description:"Directory to store data"`
	Mnemonic string `short:"m" long:"mnemonic" description:"A mnemonic seed to initialize the ledger keys with"`
	Force    bool   `short:"f" long:"force" description:"Force overwrite existing repo (dangerous!)"`
}

// Execute creates the data directory, the database and the ledger seed.
func (x *Init) Execute(args []string) error {
	if x.DataDir == "" {
		x.DataDir = repo.DefaultHomeDir
	}

	if repo.IsInitialized(x.DataDir) {
		if !x.Force {
			return errors.New("repo is already initialized")
		}
		if err := os.RemoveAll(x.DataDir); err != nil {
			return err
		}
	}

	var (
		r   *repo.Repo
		err error
	)
	if x.Mnemonic != "" {
		r, err = repo.NewRepoWithCustomMnemonicSeed(x.DataDir, x.Mnemonic)
	} else {
		r, err = repo.NewRepo(x.DataDir)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	mnemonic, err := r.Mnemonic()
	if err != nil {
		return err
	}
	fmt.Printf("Initialized repo at %s\n", x.DataDir)
	fmt.Printf("Ledger seed: %s\n", mnemonic)
	return nil
}
