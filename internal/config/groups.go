package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oonrumail/bearerbox/internal/smpp"
	"github.com/oonrumail/bearerbox/internal/smscconn"
	"github.com/oonrumail/bearerbox/internal/urltrans"
)

// CoreGroup is the single "core" configuration group: bearerbox-wide
// settings that are not specific to any one SMSC connection or service.
type CoreGroup struct {
	SmsboxPort    int    `yaml:"smsbox-port"`
	BoxAllowIP    string `yaml:"box-allow-ip"`
	BoxDenyIP     string `yaml:"box-deny-ip"`
	AdminPort        int    `yaml:"admin-port"`
	AdminCORSOrigins string `yaml:"admin-cors-origins"`
	// AdminUsername/AdminPasswordHash gate the admin/status surface behind
	// HTTP Basic Auth when both are set. AdminPasswordHash is a bcrypt
	// hash, never a plaintext password, generated with `htpasswd`-style
	// tooling or adminapi.HashPassword.
	AdminUsername     string `yaml:"admin-username"`
	AdminPasswordHash string `yaml:"admin-password-hash"`
	LogLevel          string `yaml:"log-level"`
	UnifiedPrefix     string `yaml:"unified-prefix"`

	// DLR store backend: "memory" (default), "redis", or "postgres".
	DLRStore  string `yaml:"dlr-store"`
	RedisURL  string `yaml:"redis-url"`
	RedisTTL  int    `yaml:"redis-ttl"` // seconds, 0 = no expiry
	DBURL     string `yaml:"db-url"`
}

// knownCoreKeys is the closed key set for the "core" group.
var knownCoreKeys = map[string]struct{}{
	"smsbox-port": {}, "box-allow-ip": {}, "box-deny-ip": {}, "admin-port": {},
	"admin-cors-origins": {}, "admin-username": {}, "admin-password-hash": {},
	"log-level": {}, "unified-prefix": {},
	"dlr-store": {}, "redis-url": {}, "redis-ttl": {}, "db-url": {},
}

// RedisTTLDuration returns RedisTTL as a time.Duration.
func (c CoreGroup) RedisTTLDuration() time.Duration {
	return time.Duration(c.RedisTTL) * time.Second
}

// SmsboxAddr returns the listen address for internal/smsbox.NewServer,
// defaulting the port to 13001 when unset, as spec.md §5's reference
// deployment does.
func (c CoreGroup) SmsboxAddr() string {
	port := c.SmsboxPort
	if port == 0 {
		port = 13001
	}
	return fmt.Sprintf(":%d", port)
}

// AdminAddr returns the listen address for internal/adminapi, defaulting
// the port to 13000 when unset.
func (c CoreGroup) AdminAddr() string {
	port := c.AdminPort
	if port == 0 {
		port = 13000
	}
	return fmt.Sprintf(":%d", port)
}

// SMSCGroup is one "smsc" configuration group: the bind parameters, filters
// and timing knobs for a single SMSC connection.
type SMSCGroup struct {
	SMSCID     string `yaml:"smsc-id"`
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	SystemID   string `yaml:"system-id"`
	Password   string `yaml:"password"`
	SystemType string `yaml:"system-type"`
	// BindType is one of "transmitter", "receiver", "transceiver".
	BindType string `yaml:"bind-type"`
	// InterfaceVersion is a BCD-encoded byte given as "0x34"-style hex.
	InterfaceVersion string `yaml:"interface-version"`
	SourceAddrTON    int    `yaml:"source-addr-ton"`
	SourceAddrNPI    int    `yaml:"source-addr-npi"`
	DestAddrTON      int    `yaml:"dest-addr-ton"`
	DestAddrNPI      int    `yaml:"dest-addr-npi"`
	AltCharset       string `yaml:"alt-charset"`

	EnquireLinkInterval int     `yaml:"enquire-link-interval"` // seconds
	ConnectionTimeout   int     `yaml:"connection-timeout"`    // seconds
	MaxPendingSubmits   int     `yaml:"max-pending-submits"`
	Throughput          float64 `yaml:"throughput"`
	ThrottlingSleepTime int     `yaml:"throttling-sleep-time"` // seconds
	WaitAck             int     `yaml:"wait-ack"`              // seconds
	// WaitAckExpireAction is one of "reconnect", "requeue", "never-expire".
	WaitAckExpireAction string `yaml:"wait-ack-expire-action"`
	ShutdownTimeout     int    `yaml:"shutdown-timeout"` // seconds
	ReconnectDelay      int    `yaml:"reconnect-delay"`  // seconds

	AllowedSMSCID        string `yaml:"allowed-smsc-id"`
	AllowedSMSCIDRegex   string `yaml:"allowed-smsc-id-regex"`
	DeniedSMSCID         string `yaml:"denied-smsc-id"`
	DeniedSMSCIDRegex    string `yaml:"denied-smsc-id-regex"`
	AllowedPrefix        string `yaml:"allowed-prefix"`
	AllowedPrefixRegex   string `yaml:"allowed-prefix-regex"`
	DeniedPrefix         string `yaml:"denied-prefix"`
	DeniedPrefixRegex    string `yaml:"denied-prefix-regex"`
	PreferredSMSCID      string `yaml:"preferred-smsc-id"`
	PreferredSMSCIDRegex string `yaml:"preferred-smsc-id-regex"`
	PreferredPrefix      string `yaml:"preferred-prefix"`
	PreferredPrefixRegex string `yaml:"preferred-prefix-regex"`
	UnifiedPrefix        string `yaml:"unified-prefix"`
}

var knownSMSCKeys = map[string]struct{}{
	"smsc-id": {}, "name": {}, "host": {}, "port": {}, "system-id": {},
	"password": {}, "system-type": {}, "bind-type": {}, "interface-version": {},
	"source-addr-ton": {}, "source-addr-npi": {}, "dest-addr-ton": {}, "dest-addr-npi": {},
	"alt-charset": {}, "enquire-link-interval": {}, "connection-timeout": {},
	"max-pending-submits": {}, "throughput": {}, "throttling-sleep-time": {},
	"wait-ack": {}, "wait-ack-expire-action": {}, "shutdown-timeout": {},
	"reconnect-delay": {}, "allowed-smsc-id": {}, "allowed-smsc-id-regex": {},
	"denied-smsc-id": {}, "denied-smsc-id-regex": {}, "allowed-prefix": {},
	"allowed-prefix-regex": {}, "denied-prefix": {}, "denied-prefix-regex": {},
	"preferred-smsc-id": {}, "preferred-smsc-id-regex": {}, "preferred-prefix": {},
	"preferred-prefix-regex": {}, "unified-prefix": {},
}

// ToFilterConfig renders the routing-filter subset of g as a
// smscconn.FilterConfig.
func (g SMSCGroup) ToFilterConfig() smscconn.FilterConfig {
	return smscconn.FilterConfig{
		AllowedSMSCID:        g.AllowedSMSCID,
		AllowedSMSCIDRegex:   g.AllowedSMSCIDRegex,
		DeniedSMSCID:         g.DeniedSMSCID,
		DeniedSMSCIDRegex:    g.DeniedSMSCIDRegex,
		AllowedPrefix:        g.AllowedPrefix,
		AllowedPrefixRegex:   g.AllowedPrefixRegex,
		DeniedPrefix:         g.DeniedPrefix,
		DeniedPrefixRegex:    g.DeniedPrefixRegex,
		PreferredSMSCID:      g.PreferredSMSCID,
		PreferredSMSCIDRegex: g.PreferredSMSCIDRegex,
		PreferredPrefix:      g.PreferredPrefix,
		PreferredPrefixRegex: g.PreferredPrefixRegex,
		UnifiedPrefix:        g.UnifiedPrefix,
	}
}

// ToSMPPConfig renders g as an smpp.Config, starting from
// smpp.DefaultConfig() and overriding every field g sets explicitly.
func (g SMSCGroup) ToSMPPConfig() (smpp.Config, error) {
	cfg := smpp.DefaultConfig()
	cfg.Host = g.Host
	cfg.Port = g.Port
	cfg.SystemID = g.SystemID
	cfg.Password = g.Password
	cfg.SystemType = g.SystemType
	cfg.SMSCID = g.SMSCID
	cfg.AltCharset = g.AltCharset
	cfg.SourceAddrTON = uint8(g.SourceAddrTON)
	cfg.SourceAddrNPI = uint8(g.SourceAddrNPI)
	cfg.DestAddrTON = uint8(g.DestAddrTON)
	cfg.DestAddrNPI = uint8(g.DestAddrNPI)

	if g.BindType != "" {
		bt, err := parseBindType(g.BindType)
		if err != nil {
			return cfg, fmt.Errorf("config: smsc %q: %w", g.SMSCID, err)
		}
		cfg.BindType = bt
	}

	if g.InterfaceVersion != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(g.InterfaceVersion, "0x"), 16, 8)
		if err != nil {
			return cfg, fmt.Errorf("config: smsc %q: interface-version: %w", g.SMSCID, err)
		}
		cfg.InterfaceVersion = uint8(v)
	}

	if g.EnquireLinkInterval > 0 {
		cfg.EnquireLinkInterval = time.Duration(g.EnquireLinkInterval) * time.Second
	}
	if g.ConnectionTimeout > 0 {
		cfg.ConnectionTimeout = time.Duration(g.ConnectionTimeout) * time.Second
	}
	if g.MaxPendingSubmits > 0 {
		cfg.MaxPendingSubmits = g.MaxPendingSubmits
	}
	if g.Throughput > 0 {
		cfg.Throughput = g.Throughput
	}
	if g.ThrottlingSleepTime > 0 {
		cfg.ThrottlingSleepTime = time.Duration(g.ThrottlingSleepTime) * time.Second
	}
	if g.WaitAck > 0 {
		cfg.WaitAck = time.Duration(g.WaitAck) * time.Second
	}
	if g.WaitAckExpireAction != "" {
		action, err := parseWaitAckAction(g.WaitAckExpireAction)
		if err != nil {
			return cfg, fmt.Errorf("config: smsc %q: %w", g.SMSCID, err)
		}
		cfg.WaitAckAction = action
	}
	if g.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = time.Duration(g.ShutdownTimeout) * time.Second
	}
	if g.ReconnectDelay > 0 {
		cfg.ReconnectDelay = time.Duration(g.ReconnectDelay) * time.Second
	}

	return cfg, nil
}

func parseBindType(s string) (smpp.BindType, error) {
	switch s {
	case "transmitter":
		return smpp.BindTransmitter, nil
	case "receiver":
		return smpp.BindReceiver, nil
	case "transceiver":
		return smpp.BindTransceiver, nil
	default:
		return 0, fmt.Errorf("unknown bind-type %q", s)
	}
}

func parseWaitAckAction(s string) (smpp.WaitAckAction, error) {
	switch s {
	case "reconnect":
		return smpp.WaitAckReconnect, nil
	case "requeue":
		return smpp.WaitAckRequeue, nil
	case "never-expire":
		return smpp.WaitAckNeverExpire, nil
	default:
		return 0, fmt.Errorf("unknown wait-ack-expire-action %q", s)
	}
}

// ServiceGroup is one "sms-service" configuration group: a keyword-routed
// translation entry.
type ServiceGroup struct {
	Keyword string `yaml:"keyword"`
	Aliases string `yaml:"aliases"` // semicolon-separated
	Name    string `yaml:"name"`

	GetURL  string `yaml:"get-url"`
	PostURL string `yaml:"post-url"`
	PostXML string `yaml:"post-xml"`
	File    string `yaml:"file"`
	Text    string `yaml:"text"`
	Execute string `yaml:"execute"`

	Prefix        string `yaml:"prefix"`
	Suffix        string `yaml:"suffix"`
	FakedSender   string `yaml:"faked-sender"`
	DefaultSender string `yaml:"default-sender"`
	MaxMessages   int    `yaml:"max-messages"`
	Concatenation bool   `yaml:"concatenation"`
	SplitChars    string `yaml:"split-chars"`
	SplitSuffix   string `yaml:"split-suffix"`
	OmitEmpty     bool   `yaml:"omit-empty"`
	Header        string `yaml:"header"`
	Footer        string `yaml:"footer"`
	StripKeyword  bool   `yaml:"strip-keyword"`

	AcceptedSMSC string `yaml:"accepted-smsc"`

	AllowedPrefix     string `yaml:"allowed-prefix"`
	DeniedPrefix      string `yaml:"denied-prefix"`
	AllowedRecvPrefix string `yaml:"allowed-receiver-prefix"`
	DeniedRecvPrefix  string `yaml:"denied-receiver-prefix"`
	WhiteList         string `yaml:"white-list"`
	DenyList          string `yaml:"black-list"`

	CatchAll bool   `yaml:"catch-all"`
	DLRURL   string `yaml:"dlr-url"`
}

var knownServiceKeys = map[string]struct{}{
	"keyword": {}, "aliases": {}, "name": {}, "get-url": {}, "post-url": {},
	"post-xml": {}, "file": {}, "text": {}, "execute": {}, "prefix": {},
	"suffix": {}, "faked-sender": {}, "default-sender": {}, "max-messages": {},
	"concatenation": {}, "split-chars": {}, "split-suffix": {}, "omit-empty": {},
	"header": {}, "footer": {}, "strip-keyword": {}, "accepted-smsc": {},
	"allowed-prefix": {}, "denied-prefix": {}, "allowed-receiver-prefix": {},
	"denied-receiver-prefix": {}, "white-list": {}, "black-list": {},
	"catch-all": {}, "dlr-url": {},
}

// ToTranslation renders g as an urltrans.Translation. args and
// has_catchall_arg are derived from the pattern, not read from config,
// matching the original gateway's count_occurences-based derivation.
func (g ServiceGroup) ToTranslation() (*urltrans.Translation, error) {
	typ, pattern, err := g.typeAndPattern()
	if err != nil {
		return nil, err
	}

	t := &urltrans.Translation{
		Keyword:       strings.ToLower(strings.TrimSpace(g.Keyword)),
		Aliases:       splitList(g.Aliases),
		Name:          g.Name,
		Type:          typ,
		Pattern:       pattern,
		Prefix:        g.Prefix,
		Suffix:        g.Suffix,
		FakedSender:   g.FakedSender,
		DefaultSender: g.DefaultSender,
		MaxMessages:   g.MaxMessages,
		Concatenation: g.Concatenation,
		SplitChars:    g.SplitChars,
		SplitSuffix:   g.SplitSuffix,
		OmitEmpty:     g.OmitEmpty,
		Header:        g.Header,
		Footer:        g.Footer,
		StripKeyword:  g.StripKeyword,

		AcceptedSMSC: splitList(g.AcceptedSMSC),

		AllowedPrefix:     splitList(g.AllowedPrefix),
		DeniedPrefix:      splitList(g.DeniedPrefix),
		AllowedRecvPrefix: splitList(g.AllowedRecvPrefix),
		DeniedRecvPrefix:  splitList(g.DeniedRecvPrefix),
		WhiteList:         splitList(g.WhiteList),
		DenyList:          splitList(g.DenyList),

		CatchAll: g.CatchAll,
		DLRURL:   g.DLRURL,
	}

	t.Args = strings.Count(pattern, "%s") + strings.Count(pattern, "%S")
	t.HasCatchAllArg = strings.Contains(pattern, "%r") || strings.Contains(pattern, "%a")

	return t, nil
}

func (g ServiceGroup) typeAndPattern() (urltrans.Type, string, error) {
	set := 0
	var typ urltrans.Type
	var pattern string
	check := func(v string, t urltrans.Type) {
		if v != "" {
			set++
			typ, pattern = t, v
		}
	}
	check(g.GetURL, urltrans.TypeGetURL)
	check(g.PostURL, urltrans.TypePostURL)
	check(g.PostXML, urltrans.TypePostXML)
	check(g.File, urltrans.TypeFile)
	check(g.Text, urltrans.TypeText)
	check(g.Execute, urltrans.TypeExecute)

	switch set {
	case 0:
		return 0, "", fmt.Errorf("config: sms-service %q: none of get-url/post-url/post-xml/file/text/execute set", g.Keyword)
	case 1:
		return typ, pattern, nil
	default:
		return 0, "", fmt.Errorf("config: sms-service %q: more than one of get-url/post-url/post-xml/file/text/execute set", g.Keyword)
	}
}

// SendSMSUserGroup is one "sendsms-user" configuration group: an HTTP
// sendsms-frontend account, keyed by username rather than keyword.
type SendSMSUserGroup struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ForcedSMSC  string `yaml:"forced-smsc"`
	DefaultSMSC string `yaml:"default-smsc"`
	AllowIP     string `yaml:"allow-ip"`
	DenyIP      string `yaml:"deny-ip"`
	DLRURL      string `yaml:"dlr-url"`
}

var knownSendSMSUserKeys = map[string]struct{}{
	"username": {}, "password": {}, "forced-smsc": {}, "default-smsc": {},
	"allow-ip": {}, "deny-ip": {}, "dlr-url": {},
}

// ToTranslation renders g as a TypeSendSMS urltrans.Translation, keyed by
// username rather than keyword.
func (g SendSMSUserGroup) ToTranslation() *urltrans.Translation {
	return &urltrans.Translation{
		Type:        urltrans.TypeSendSMS,
		CatchAll:    true,
		Username:    g.Username,
		Password:    g.Password,
		ForcedSMSC:  g.ForcedSMSC,
		DefaultSMSC: g.DefaultSMSC,
		AllowIP:     splitList(g.AllowIP),
		DenyIP:      splitList(g.DenyIP),
		DLRURL:      g.DLRURL,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
