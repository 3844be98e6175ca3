package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/oonrumail/bearerbox/internal/smpp"
	"github.com/oonrumail/bearerbox/internal/urltrans"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bearerbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesAllFourGroupClasses(t *testing.T) {
	path := writeTempConfig(t, `
core:
  smsbox-port: 13001
  admin-port: 13000
  log-level: debug
smsc:
  - smsc-id: foo
    host: smsc.example.com
    port: 2775
    system-id: user
    password: pass
    bind-type: transceiver
sms-service:
  - keyword: info
    get-url: "http://x/%s"
sendsms-user:
  - username: alice
    password: secret
`)
	cfg, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Equal(t, ":13001", cfg.Core.SmsboxAddr())
	require.Equal(t, "debug", cfg.Core.LogLevel)
	require.Len(t, cfg.SMSCs, 1)
	require.Equal(t, "foo", cfg.SMSCs[0].SMSCID)
	require.Len(t, cfg.Services, 1)
	require.Equal(t, "info", cfg.Services[0].Keyword)
	require.Len(t, cfg.SendSMSUsers, 1)
	require.Equal(t, "alice", cfg.SendSMSUsers[0].Username)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("BEARERBOX_SMSC_HOST", "smsc.from-env.example")
	path := writeTempConfig(t, `
smsc:
  - smsc-id: foo
    host: ${BEARERBOX_SMSC_HOST}
    port: ${BEARERBOX_SMSC_PORT:2775}
`)
	cfg, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, "smsc.from-env.example", cfg.SMSCs[0].Host)
	require.Equal(t, 2775, cfg.SMSCs[0].Port)
}

func TestLoadWarnsOnUnknownKeyWithoutFailing(t *testing.T) {
	path := writeTempConfig(t, `
smsc:
  - smsc-id: foo
    host: example.com
    bogus-key: nonsense
`)
	cfg, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, cfg.SMSCs, 1)
	require.Equal(t, "example.com", cfg.SMSCs[0].Host)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestSMSCGroupToSMPPConfigAppliesOverridesOnDefaults(t *testing.T) {
	g := SMSCGroup{
		SMSCID:              "foo",
		Host:                "smsc.example.com",
		Port:                2775,
		BindType:            "receiver",
		InterfaceVersion:    "0x34",
		EnquireLinkInterval: 10,
	}
	cfg, err := g.ToSMPPConfig()
	require.NoError(t, err)
	require.Equal(t, "smsc.example.com", cfg.Host)
	require.Equal(t, smpp.BindReceiver, cfg.BindType)
	require.Equal(t, uint8(0x34), cfg.InterfaceVersion)
	require.Equal(t, 10*1e9, float64(cfg.EnquireLinkInterval))
	// Untouched fields keep DefaultConfig's values.
	require.Equal(t, smpp.DefaultConfig().WaitAck, cfg.WaitAck)
}

func TestSMSCGroupToSMPPConfigRejectsUnknownBindType(t *testing.T) {
	g := SMSCGroup{BindType: "nonsense"}
	_, err := g.ToSMPPConfig()
	require.Error(t, err)
}

func TestSMSCGroupToFilterConfigRoundTripsPrefixes(t *testing.T) {
	g := SMSCGroup{AllowedPrefix: "1;2", UnifiedPrefix: "1,001;2,002"}
	fc := g.ToFilterConfig()
	require.Equal(t, "1;2", fc.AllowedPrefix)
	require.Equal(t, "1,001;2,002", fc.UnifiedPrefix)
}

func TestServiceGroupToTranslationDerivesArgsFromPattern(t *testing.T) {
	g := ServiceGroup{Keyword: "info", GetURL: "http://x/%s/%S"}
	tr, err := g.ToTranslation()
	require.NoError(t, err)
	require.Equal(t, urltrans.TypeGetURL, tr.Type)
	require.Equal(t, 2, tr.Args)
	require.False(t, tr.HasCatchAllArg)
}

func TestServiceGroupToTranslationDerivesHasCatchAllArg(t *testing.T) {
	g := ServiceGroup{Keyword: "echo", PostURL: "http://x/%r"}
	tr, err := g.ToTranslation()
	require.NoError(t, err)
	require.True(t, tr.HasCatchAllArg)
}

func TestServiceGroupToTranslationRejectsZeroOrMultiplePatternKinds(t *testing.T) {
	_, err := ServiceGroup{Keyword: "info"}.ToTranslation()
	require.Error(t, err)

	_, err = ServiceGroup{Keyword: "info", GetURL: "http://x", PostURL: "http://y"}.ToTranslation()
	require.Error(t, err)
}

func TestServiceGroupToTranslationSplitsListFields(t *testing.T) {
	g := ServiceGroup{Keyword: "play", Text: "ok", WhiteList: "+111;+222", DenyList: "+333"}
	tr, err := g.ToTranslation()
	require.NoError(t, err)
	require.Equal(t, []string{"+111", "+222"}, tr.WhiteList)
	require.Equal(t, []string{"+333"}, tr.DenyList)
}

func TestSendSMSUserGroupToTranslationIsCatchAllSendSMSType(t *testing.T) {
	g := SendSMSUserGroup{Username: "alice", Password: "secret", AllowIP: "127.0.0.1"}
	tr := g.ToTranslation()
	require.Equal(t, urltrans.TypeSendSMS, tr.Type)
	require.True(t, tr.CatchAll)
	require.Equal(t, []string{"127.0.0.1"}, tr.AllowIP)
}

func TestCoreGroupAddrsDefaultWhenPortUnset(t *testing.T) {
	var c CoreGroup
	require.Equal(t, ":13001", c.SmsboxAddr())
	require.Equal(t, ":13000", c.AdminAddr())

	c.SmsboxPort, c.AdminPort = 9001, 9000
	require.Equal(t, ":9001", c.SmsboxAddr())
	require.Equal(t, ":9000", c.AdminAddr())
}

func TestBuildTranslationsAssemblesFullList(t *testing.T) {
	cfg := &Config{
		Services: []ServiceGroup{
			{Keyword: "info", GetURL: "http://x/%s"},
		},
		SendSMSUsers: []SendSMSUserGroup{
			{Username: "alice"},
		},
	}
	list, err := cfg.BuildTranslations()
	require.NoError(t, err)

	_, ok := list.FindUsername("alice")
	require.True(t, ok)
	require.Len(t, list.Candidates("info"), 1)
}

func TestAdminCORSOriginsSplitsSemicolons(t *testing.T) {
	cfg := &Config{Core: CoreGroup{AdminCORSOrigins: "https://a.example;https://b.example"}}
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AdminCORSOrigins())
}

func TestSmsboxIPListsSplitsSemicolons(t *testing.T) {
	cfg := &Config{Core: CoreGroup{BoxAllowIP: "10.0.0.1;10.0.0.2", BoxDenyIP: "10.0.0.3"}}
	allow, deny := cfg.SmsboxIPLists()
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, allow)
	require.Equal(t, []string{"10.0.0.3"}, deny)
}
