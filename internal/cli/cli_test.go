package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/pushrules/internal/pushrules"
	"github.com/nao1215/pushrules/pkg/event"
	"github.com/nao1215/pushrules/pkg/middleware"
)

const testUser = "@alice:example.org"

// execute はルートコマンドを実行して標準出力を返す。
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NATS_URL", "")
	t.Setenv("PUSHER_REGISTRY_URL", "")
	return run(t.Context(), args...)
}

// run は環境変数に触れずにルートコマンドを実行する。
func run(ctx context.Context, args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pushrules.db")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pushrulesctl", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"seed", "dump", "set-enabled", "token", "watch"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("nats-url"))

	dump, _, err := cmd.Find([]string{"dump"})
	require.NoError(t, err)
	formatFlag := dump.Flags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "json", formatFlag.DefValue)

	seed, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)
	fileFlag := seed.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
	assert.Equal(t, "f", fileFlag.Shorthand)
}

func TestSeedAndDump(t *testing.T) {
	db := tempDB(t)

	t.Run("既定のルールセットを作成できる", func(t *testing.T) {
		out, err := execute(t, "--db", db, "seed", testUser)
		require.NoError(t, err)
		assert.Contains(t, out, "作成しました")
	})

	t.Run("2回目は何もしない", func(t *testing.T) {
		out, err := execute(t, "--db", db, "seed", testUser)
		require.NoError(t, err)
		assert.Contains(t, out, "既に存在します")
	})

	t.Run("JSONで出力できる", func(t *testing.T) {
		out, err := execute(t, "--db", db, "dump", testUser)
		require.NoError(t, err)

		rs := pushrules.NewRuleSet()
		require.NoError(t, json.Unmarshal([]byte(out), rs))
		_, ok := rs.Find(pushrules.OverrideKind, ".m.rule.master")
		assert.True(t, ok)
	})

	t.Run("YAMLで出力できる", func(t *testing.T) {
		out, err := execute(t, "--db", db, "dump", testUser, "--format", "yaml")
		require.NoError(t, err)

		var v map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &v))
		assert.Contains(t, v, "override")
		assert.Contains(t, v, "underride")
	})

	t.Run("不正な出力形式はエラー", func(t *testing.T) {
		_, err := execute(t, "--db", db, "dump", testUser, "--format", "xml")
		require.Error(t, err)
	})

	t.Run("存在しないユーザーはエラー", func(t *testing.T) {
		_, err := execute(t, "--db", db, "dump", "@nobody:example.org")
		require.Error(t, err)
	})
}

func TestSeedFromFile(t *testing.T) {
	db := tempDB(t)
	file := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
content:
  - rule_id: cake
    pattern: cake*lie
    actions: [notify]
room:
  - rule_id: "!room:example.org"
    enabled: false
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	_, err := execute(t, "--db", db, "seed", testUser, "-f", file)
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "dump", testUser)
	require.NoError(t, err)

	rs := pushrules.NewRuleSet()
	require.NoError(t, json.Unmarshal([]byte(out), rs))

	cake, ok := rs.Find(pushrules.ContentKind, "cake")
	require.True(t, ok)
	assert.Equal(t, "cake*lie", cake.Pattern)
	assert.True(t, cake.Enabled)
	assert.False(t, cake.Default)

	room, ok := rs.Find(pushrules.RoomKind, "!room:example.org")
	require.True(t, ok)
	assert.False(t, room.Enabled)
	assert.Empty(t, room.Actions)

	assert.Equal(t, 0, rs.List(pushrules.OverrideKind).Len())
}

func TestLoadRuleSetYAML(t *testing.T) {
	t.Run("未知の種別はエラー", func(t *testing.T) {
		_, err := LoadRuleSetYAML([]byte("postcontent: []\n"))
		require.Error(t, err)
	})

	t.Run("patternのないcontentルールはエラー", func(t *testing.T) {
		_, err := LoadRuleSetYAML([]byte("content:\n  - rule_id: x\n"))
		require.ErrorIs(t, err, pushrules.ErrCorruptData)
	})

	t.Run("YAMLとして不正", func(t *testing.T) {
		_, err := LoadRuleSetYAML([]byte("override: [\n"))
		require.Error(t, err)
	})
}

func TestSetEnabled(t *testing.T) {
	db := tempDB(t)
	_, err := execute(t, "--db", db, "seed", testUser)
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "set-enabled", testUser, "override", ".m.rule.master", "true")
	require.NoError(t, err)
	assert.Contains(t, out, "enabled=true")

	out, err = execute(t, "--db", db, "dump", testUser)
	require.NoError(t, err)
	rs := pushrules.NewRuleSet()
	require.NoError(t, json.Unmarshal([]byte(out), rs))
	master, ok := rs.Find(pushrules.OverrideKind, ".m.rule.master")
	require.True(t, ok)
	assert.True(t, master.Enabled)

	tests := []struct {
		name string
		args []string
	}{
		{"未知の種別", []string{"postcontent", ".m.rule.master", "true"}},
		{"真偽値でない", []string{"override", ".m.rule.master", "yes please"}},
		{"存在しないルール", []string{"override", "nope", "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "set-enabled", testUser}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
		})
	}
}

func TestToken(t *testing.T) {
	t.Run("JWT_SECRETで署名したトークンを発行する", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "cli-secret")
		out, err := execute(t, "token", testUser, "--device", "DEV1", "--ttl", "1h")
		require.NoError(t, err)

		claims := &middleware.JWTClaims{}
		_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (any, error) {
			return []byte("cli-secret"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, testUser, claims.UserID)
		assert.Equal(t, "DEV1", claims.DeviceID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("JWT_SECRETが無いとエラー", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := execute(t, "token", testUser)
		require.Error(t, err)
	})
}

func TestWatch(t *testing.T) {
	t.Run("NATS_URLが無いとエラー", func(t *testing.T) {
		_, err := execute(t, "watch")
		require.Error(t, err)
	})

	t.Run("発行された変更通知を表示する", func(t *testing.T) {
		url := os.Getenv("NATS_URL")
		if url == "" {
			t.Skip("NATS_URLが未設定のためスキップ")
		}
		prefix := "pushrules.clitest." + strings.ReplaceAll(t.Name(), "/", "_")
		t.Setenv("EVENT_SUBJECT_PREFIX", prefix)
		t.Setenv("PUSHER_REGISTRY_URL", "")

		nc, err := nats.Connect(url)
		require.NoError(t, err)
		defer nc.Close()
		pub := event.NewNATSPublisher(nc, prefix)

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		defer cancel()

		done := make(chan struct{})
		var (
			out    string
			runErr error
		)
		go func() {
			defer close(done)
			out, runErr = run(ctx, "watch", "--count", "1")
		}()

		ev, err := event.NewPusherChanged(event.PusherChangedData{UserID: testUser, AppID: "app", PushKey: "k"})
		require.NoError(t, err)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-done:
				break loop
			case <-ctx.Done():
				t.Fatal("変更通知が表示されなかった")
			case <-ticker.C:
				require.NoError(t, pub.Publish(ctx, ev))
			}
		}

		require.NoError(t, runErr)
		assert.Contains(t, out, "PusherChanged @alice:example.org app/k set")
	})
}

func TestPrintEvent(t *testing.T) {
	ev, err := event.NewPushRulesUpdated(4, event.PushRulesUpdatedData{UserID: testUser, Operation: "set_enabled", Kind: "room", RuleID: "!r:example.org"})
	require.NoError(t, err)
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	t.Run("1行で表示する", func(t *testing.T) {
		var out, errOut bytes.Buffer
		assert.True(t, printEvent(&out, &errOut, payload))
		assert.Contains(t, out.String(), "PushRulesUpdated rev=4 @alice:example.org set_enabled room/!r:example.org")
		assert.Empty(t, errOut.String())
	})

	t.Run("解釈できないペイロードはエラー出力に書く", func(t *testing.T) {
		var out, errOut bytes.Buffer
		assert.False(t, printEvent(&out, &errOut, []byte(`{"id":""}`)))
		assert.Empty(t, out.String())
		assert.Contains(t, errOut.String(), "イベントを解釈できません")
	})
}
