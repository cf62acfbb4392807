package main

import (
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/Adda-Baaj/khobor-digest/internal/config"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
)

type commandContext struct {
	configFlag *string
	viper      *viper.Viper

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		viper:      config.New(),
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(c.viper, path)
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg config.Config) (*logger.ZapLogger, error) {
	return logger.New(cfg.Log)
}
