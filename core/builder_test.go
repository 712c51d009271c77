package core

import (
	"errors"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"gorm.io/gorm"
	"io/ioutil"
	gonet "net"
	"os"
	"testing"
)

func TestWithRepo_ClosesOnFailure(t *testing.T) {
	var opened *repo.Repo
	_, err := withRepo(repo.MockRepo, func(r *repo.Repo) (*SwapNode, error) {
		opened = r
		return nil, errors.New("build failed")
	})
	if err == nil {
		t.Fatal("Expected build error")
	}
	if opened == nil {
		t.Fatal("Repo was never opened")
	}

	err = opened.DB().View(func(tx *gorm.DB) error {
		return tx.Find(&[]models.Trade{}).Error
	})
	if err == nil {
		t.Error("Expected the repo database to be closed")
	}
}

func TestNewDevnetNode_GatewayAddrInUse(t *testing.T) {
	listener, err := gonet.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	dataDir, err := ioutil.TempDir("", "colorswap-builder")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dataDir)

	network := ledger.NewMockNetwork()
	network.RegisterColor(ledger.ColorDefinition{Desc: DevnetColor, Name: "gold"})

	cfg := mockConfig()
	cfg.DataDir = dataDir
	cfg.GatewayAddr = listener.Addr().String()

	if _, err := NewDevnetNode(cfg, network); err == nil {
		t.Fatal("Expected an error when the gateway address is taken")
	}

	cfg.GatewayAddr = ""
	node, err := NewDevnetNode(cfg, network)
	if err != nil {
		t.Fatal(err)
	}
	node.repo.Close()
}
