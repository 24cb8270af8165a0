package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/pushrules/internal/pushrules"
)

// NewSeedCommand はユーザーのルールセットを作成するコマンドを生成する。
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed <user-id>",
		Short: "ユーザーのルールセットを作成する",
		Long: `ユーザーのルールセットドキュメントが無ければ作成する。

--file を指定しない場合はサーバー既定のルールセットを使う。
既にドキュメントがある場合は何もしない。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			rs := pushrules.DefaultRuleSet(userID)
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("ルールセットファイルの読み込みに失敗: %w", err)
				}
				rs, err = LoadRuleSetYAML(data)
				if err != nil {
					return err
				}
			}

			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.Engine.Provision(cmd.Context(), userID, rs)
			if err != nil {
				return fmt.Errorf("ルールセットの作成に失敗: %w", err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s のルールセットを作成しました\n", userID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s のルールセットは既に存在します\n", userID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML形式のルールセットファイル")
	return cmd
}

// NewDumpCommand はユーザーのルールセットを出力するコマンドを生成する。
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump <user-id>",
		Short: "ユーザーのルールセットを出力する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("不正な出力形式です: %q (json|yaml)", format)
			}

			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rs, err := a.Engine.GetAll(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ルールセットの取得に失敗: %w", err)
			}

			out, err := encodeRuleSet(rs, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "出力形式 (json|yaml)")
	return cmd
}

// NewSetEnabledCommand はルールの有効状態を変更するコマンドを生成する。
func NewSetEnabledCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-enabled <user-id> <kind> <rule-id> <true|false>",
		Short: "ルールの有効状態を変更する",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := pushrules.Kind(args[1])
			if !kind.Valid() {
				return fmt.Errorf("未サポートのルール種別です: %q", args[1])
			}
			enabled, err := strconv.ParseBool(args[3])
			if err != nil {
				return fmt.Errorf("有効状態はtrueかfalseで指定してください: %w", err)
			}

			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Engine.GetRule(cmd.Context(), args[0], pushrules.GlobalScope, kind, args[2]); err != nil {
				return err
			}
			if err := a.Engine.SetEnabled(cmd.Context(), args[0], pushrules.GlobalScope, kind, args[2], enabled); err != nil {
				return fmt.Errorf("有効状態の変更に失敗: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s を enabled=%t にしました\n", kind, args[2], enabled)
			return nil
		},
	}
	return cmd
}

// LoadRuleSetYAML はYAML形式のルールセットを読み込む。
// 各ルールの default は省略時false、enabled は省略時true、actions は省略時に空になる。
func LoadRuleSetYAML(data []byte) (*pushrules.RuleSet, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ルールセットファイルのパースに失敗: %w", err)
	}

	for kind, rules := range raw {
		if !pushrules.Kind(kind).Valid() {
			return nil, fmt.Errorf("未サポートのルール種別です: %q", kind)
		}
		for _, r := range rules {
			setDefault(r, "default", false)
			setDefault(r, "enabled", true)
			setDefault(r, "actions", []any{})
		}
	}

	// JSONを経由してドキュメントと同じ検証を通す。
	bs, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("ルールセットの変換に失敗: %w", err)
	}
	rs := pushrules.NewRuleSet()
	if err := json.Unmarshal(bs, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func setDefault(m map[string]any, key string, v any) {
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}

// encodeRuleSet はルールセットを指定形式にエンコードする。
func encodeRuleSet(rs *pushrules.RuleSet, format string) ([]byte, error) {
	bs, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ルールセットのエンコードに失敗: %w", err)
	}
	if format == "json" {
		return append(bs, '\n'), nil
	}

	var v any
	if err := json.Unmarshal(bs, &v); err != nil {
		return nil, fmt.Errorf("ルールセットのエンコードに失敗: %w", err)
	}
	return yaml.Marshal(v)
}
