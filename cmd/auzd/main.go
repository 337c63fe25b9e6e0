package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"auzchain/core/state"
	"auzchain/native/access"
	"auzchain/native/escrow"
	"auzchain/native/hotwallet"
	"auzchain/native/proof"
	"auzchain/native/token"
	"auzchain/observability/logging"
	gateway "auzchain/services/custody-gateway"
	"auzchain/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "auzd.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := gateway.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Setup("auzd", cfg.Env, logging.ParseLevel(cfg.LogLevel))

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chaindata"))
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	server, err := wire(cfg, db, log)
	if err != nil {
		log.Error("wire engines", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("custody gateway listening", "address", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// wire builds the engine graph: one state manager feeds the access registry,
// the proof verifier, and the three native engines, with the token engine
// acting as the ledger for escrow and hot-wallet custody moves.
func wire(cfg gateway.Config, db storage.Database, log *slog.Logger) (*gateway.Server, error) {
	manager := state.NewManager(db)

	owner, err := gateway.ParseAddress(cfg.Token.Owner)
	if err != nil {
		return nil, fmt.Errorf("token.owner: %w", err)
	}
	tokenFeeWallet, err := gateway.ParseAddress(cfg.Token.FeeWallet)
	if err != nil {
		return nil, fmt.Errorf("token.fee_wallet: %w", err)
	}
	vault, err := gateway.ParseAddress(cfg.Escrow.Vault)
	if err != nil {
		return nil, fmt.Errorf("escrow.vault: %w", err)
	}
	escrowFeeWallet, err := gateway.ParseAddress(cfg.Escrow.FeeWallet)
	if err != nil {
		return nil, fmt.Errorf("escrow.fee_wallet: %w", err)
	}
	wallet, err := gateway.ParseAddress(cfg.HotWallet.Wallet)
	if err != nil {
		return nil, fmt.Errorf("hotwallet.wallet: %w", err)
	}
	buyCap, err := gateway.ParseCap(cfg.HotWallet.BuyCap)
	if err != nil {
		return nil, fmt.Errorf("hotwallet.buy_cap: %w", err)
	}
	sellCap, err := gateway.ParseCap(cfg.HotWallet.SellCap)
	if err != nil {
		return nil, fmt.Errorf("hotwallet.sell_cap: %w", err)
	}

	registry := access.NewRegistry(owner)
	registry.SetState(manager)

	verifier := proof.NewVerifier(manager, registry)
	registry.SetVerifier(verifier)

	ledger := token.NewEngine(owner, tokenFeeWallet)
	ledger.SetState(manager)
	ledger.SetVerifier(verifier)
	ledger.SetRoles(registry)

	trades := escrow.NewEngine(vault, escrowFeeWallet)
	trades.SetState(manager)
	trades.SetLedger(ledger)
	trades.SetVerifier(verifier)

	otc := hotwallet.NewEngine(wallet, buyCap, sellCap)
	otc.SetState(manager)
	otc.SetLedger(ledger)
	otc.SetVerifier(verifier)
	otc.SetRoles(registry)

	// Custody and fee addresses never pay the transfer commission.
	for _, addr := range [][20]byte{vault, wallet, tokenFeeWallet, escrowFeeWallet} {
		if err := manager.SetFeeExempt(addr, true); err != nil {
			return nil, fmt.Errorf("set fee exemption: %w", err)
		}
	}
	if err := manager.SetCommissionBps(cfg.Token.CommissionBps); err != nil {
		return nil, fmt.Errorf("set commission: %w", err)
	}

	return gateway.NewServer(ledger, trades, otc, log), nil
}
