package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"meshpm/internal/config"
	"meshpm/internal/control"
)

// commandContext resolves the client configuration once and hands commands a
// ready control client.
type commandContext struct {
	addressFlag *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Client
	configErr  error
}

func newCommandContext(addressFlag, configFlag *string) *commandContext {
	return &commandContext{addressFlag: addressFlag, configFlag: configFlag}
}

func (c *commandContext) clientConfig() (*config.Client, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.LoadClient(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.addressFlag != nil {
			if addr := strings.TrimSpace(*c.addressFlag); addr != "" {
				cfg.Address = addr
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withClient(fn func(*control.Client) error) error {
	cfg, err := c.clientConfig()
	if err != nil {
		return err
	}
	client, err := control.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return friendlyDaemonError(err)
	}
	return nil
}

func friendlyDaemonError(err error) error {
	if errors.Is(err, control.ErrDaemonNotRunning) {
		return fmt.Errorf("%w; start it with `meshpm daemon start`", err)
	}
	return err
}
