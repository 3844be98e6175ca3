// Package config loads the bearerbox configuration document: a YAML
// rendering of the hierarchical key/value file with named groups (`core`,
// `smsc`, `sms-service`, `sendsms-user`) the original gateway's config
// grammar describes. Each group class has a closed key set; keys outside
// it are warned about and dropped rather than silently accepted or
// rejected outright, and "${VAR}"/"${VAR:default}" references anywhere in
// the document are expanded against the process environment before
// parsing, mirroring imap-server/config.LoadConfig.
package config

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/oonrumail/bearerbox/internal/urltrans"
)

// Config is the fully parsed, typed configuration document.
type Config struct {
	Core         CoreGroup
	SMSCs        []SMSCGroup
	Services     []ServiceGroup
	SendSMSUsers []SendSMSUserGroup
}

// rawDocument mirrors the document shape with values left as yaml.Node so
// each group can be checked against its closed key set before being
// decoded into its typed struct.
type rawDocument struct {
	Core        yaml.Node   `yaml:"core"`
	SMSC        []yaml.Node `yaml:"smsc"`
	Service     []yaml.Node `yaml:"sms-service"`
	SendSMSUser []yaml.Node `yaml:"sendsms-user"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces every ${VAR} or ${VAR:default} reference in s
// with the environment variable's value, falling back to default (or the
// empty string) when it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}

// Load reads and parses the configuration document at path.
func Load(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := &Config{}

	if doc.Core.Kind != 0 {
		warnUnknownKeys(doc.Core, knownCoreKeys, "core", logger)
		if err := doc.Core.Decode(&cfg.Core); err != nil {
			return nil, fmt.Errorf("config: core: %w", err)
		}
	}

	for i, node := range doc.SMSC {
		warnUnknownKeys(node, knownSMSCKeys, "smsc", logger)
		var g SMSCGroup
		if err := node.Decode(&g); err != nil {
			return nil, fmt.Errorf("config: smsc[%d]: %w", i, err)
		}
		cfg.SMSCs = append(cfg.SMSCs, g)
	}

	for i, node := range doc.Service {
		warnUnknownKeys(node, knownServiceKeys, "sms-service", logger)
		var g ServiceGroup
		if err := node.Decode(&g); err != nil {
			return nil, fmt.Errorf("config: sms-service[%d]: %w", i, err)
		}
		cfg.Services = append(cfg.Services, g)
	}

	for i, node := range doc.SendSMSUser {
		warnUnknownKeys(node, knownSendSMSUserKeys, "sendsms-user", logger)
		var g SendSMSUserGroup
		if err := node.Decode(&g); err != nil {
			return nil, fmt.Errorf("config: sendsms-user[%d]: %w", i, err)
		}
		cfg.SendSMSUsers = append(cfg.SendSMSUsers, g)
	}

	return cfg, nil
}

// warnUnknownKeys logs a warning for every mapping key in node that is not
// a member of known, rather than failing the load or silently accepting
// it. A nil logger makes this a no-op, which test callers that don't care
// about the warning rely on.
func warnUnknownKeys(node yaml.Node, known map[string]struct{}, group string, logger *zap.Logger) {
	if node.Kind != yaml.MappingNode || logger == nil {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, ok := known[key]; !ok {
			logger.Warn("config: unknown key dropped",
				zap.String("group", group),
				zap.String("key", key),
				zap.Int("line", node.Content[i].Line),
			)
		}
	}
}

// BuildTranslations assembles every sms-service and sendsms-user group
// into a single urltrans.List, in document order.
func (c *Config) BuildTranslations() (*urltrans.List, error) {
	list := urltrans.NewList()
	for i, g := range c.Services {
		t, err := g.ToTranslation()
		if err != nil {
			return nil, fmt.Errorf("config: sms-service[%d]: %w", i, err)
		}
		list.Add(t)
	}
	for _, g := range c.SendSMSUsers {
		list.Add(g.ToTranslation())
	}
	return list, nil
}

// SmsboxIPLists returns the core group's box-allow-ip/box-deny-ip as
// semicolon-split slices, ready for smsbox.NewIPFilter.
func (c *Config) SmsboxIPLists() (allow, deny []string) {
	return splitList(c.Core.BoxAllowIP), splitList(c.Core.BoxDenyIP)
}

// AdminCORSOrigins returns the core group's admin-cors-origins as a
// semicolon-split slice, ready for adminapi.WithCORSOrigins.
func (c *Config) AdminCORSOrigins() []string {
	return splitList(c.Core.AdminCORSOrigins)
}

// AdminBasicAuth returns the core group's admin-username/admin-password-hash
// pair and whether both are set, ready for adminapi.WithBasicAuth.
func (c *Config) AdminBasicAuth() (username, passwordHash string, ok bool) {
	if c.Core.AdminUsername == "" || c.Core.AdminPasswordHash == "" {
		return "", "", false
	}
	return c.Core.AdminUsername, c.Core.AdminPasswordHash, true
}
