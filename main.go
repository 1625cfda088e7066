package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"

	"github.com/kasbot/kasbot-server/dal"
	"github.com/kasbot/kasbot-server/service"
	"github.com/kasbot/kasbot-server/utils"

	"github.com/dustin/go-humanize"
)

var (
	cfg *config
)

func startProfileServer() {
	listenAddr := net.JoinHostPort("localhost", cfg.ProfilePort)
	kbotLog.Infof("Profile server listening on %s", listenAddr)
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	kbotLog.Errorf("%v", http.ListenAndServe(listenAddr, mux))
}

// kbotMain is the real main function for kasbot-server.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func kbotMain() error {
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg

	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	defer kbotLog.Info("Shutdown complete")

	kbotLog.Infof("Node: %s", utils.GetNodeDesc())

	utils.SetPanicDir(cfg.AppDataDir.Value)

	if cfg.ProfilePort != "" {
		go func() {
			startProfileServer()
		}()
	}

	err = dal.InitDB(cfg.dbConfig(), !cfg.DisableAutoCreateDB)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tx := dal.GetDB(ctx)
	metaInfo, err := service.GetMetaInfoService().Get(ctx, tx)
	if err != nil {
		return err
	}
	kbotLog.Infof("Meta Info: %s %s, tipped %s sompi, withdrawn %s sompi, last DAA score %v",
		humanize.Comma(metaInfo.TipCount), pickNoun(uint64(metaInfo.TipCount), "tip", "tips"),
		humanize.Comma(int64(metaInfo.TippedAmount)), humanize.Comma(int64(metaInfo.WithdrawnAmount)),
		metaInfo.LastDAAScore)

	svr, err := newServer(cfg, tx)
	if err != nil {
		kbotLog.Errorf("Unable to start server: %v", err)
		return err
	}

	if err := svr.Start(); err != nil {
		kbotLog.Errorf("Unable to start server: %v", err)
		return err
	}
	addInterruptHandler(func() {
		svr.Stop()
	})

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interruptHandlersDone
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := kbotMain(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
