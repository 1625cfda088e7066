package chainclient

import (
	"context"
	"time"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/utils"
)

// Start fetches the first snapshot of the network and launches the handler
// refreshing it every StatsInterval.  Failing to reach the indexer at start
// is not fatal, the handler keeps trying.
func (c *Client) Start() error {
	c.quitMtx.Lock()
	if c.started {
		c.quitMtx.Unlock()
		return nil
	}
	c.started = true
	c.quitMtx.Unlock()

	c.getBackendVersion()

	c.wg.Add(1)
	go c.statsHandler()
	return nil
}

// Stop signals the shutdown of all goroutines started by Start.
func (c *Client) Stop() {
	c.quitMtx.Lock()
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	c.quitMtx.Unlock()
	log.Trace("Chain client done")
}

// WaitForShutdown blocks until all handlers have exited.
func (c *Client) WaitForShutdown() {
	c.wg.Wait()
}

func (c *Client) getBackendVersion() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	info, err := c.GetNodeInfo(ctx)
	if err != nil {
		log.Infof("Unable to get backend node version: %v", err)
		return
	}
	chaincfg.IndexerBackendVersion = info.ServerVersion
	log.Infof("Backend node version: %v (synced: %v)", info.ServerVersion, info.IsSynced)
}

// refresh fetches a new snapshot and notifies subscribers when the DAA score
// moved forward.
func (c *Client) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	previous := c.Stats()
	stats, err := c.FetchStats(ctx)
	if err != nil {
		log.Warnf("Unable to refresh network stats: %v", err)
		c.sendNotification(NTIndexerUnreachable, err)
		return
	}
	if previous != nil && stats.DAAScore <= previous.DAAScore {
		log.Tracef("DAA score unchanged at %v", stats.DAAScore)
		return
	}
	log.Debugf("Network stats updated: DAA score %v, difficulty %v", stats.DAAScore, stats.Difficulty)
	c.sendNotification(NTStatsChanged, stats)
}

// statsHandler refreshes the network statistics periodically.
func (c *Client) statsHandler() {
	defer c.wg.Done()
	defer utils.MyRecover()

	log.Info("Fetching network stats...")
	c.refresh()

	ticker := time.NewTicker(c.cfg.StatsInterval)
	defer ticker.Stop()
out:
	for {
		select {
		case <-ticker.C:
			c.refresh()

		case <-c.quit:
			break out
		}
	}
	log.Trace("Stats handler done")
}
