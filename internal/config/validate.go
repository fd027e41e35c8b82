package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.LeaseTTL <= 0 {
		return errors.New("workflow.lease_ttl must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval >= c.Workflow.LeaseTTL {
		return errors.New("workflow.lease_ttl must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.ScoreWaitTimeout <= 0 {
		return errors.New("workflow.score_wait_timeout must be positive")
	}
	if c.Workflow.WatchInterval <= 0 {
		return errors.New("workflow.watch_interval must be positive")
	}
	if c.Workflow.SweepInterval < 0 {
		return errors.New("workflow.sweep_interval must be >= 0 (0 disables the sweep)")
	}
	for _, delay := range c.Workflow.RetryDelays {
		if delay <= 0 {
			return errors.New("workflow.retry_delays entries must be positive")
		}
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/powerplay/config.toml"
		}
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'powerplay config init')", defaultPath)
	}
	if c.Gemini.VideoPollInterval <= 0 {
		return errors.New("gemini.video_poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateBlob() error {
	if c.Blob.RequestTimeout <= 0 {
		return errors.New("blob.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return errors.New("smtp.port must be a valid TCP port")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
