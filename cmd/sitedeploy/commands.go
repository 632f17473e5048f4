package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hwuu/sitedeploy/internal/config"
	"github.com/hwuu/sitedeploy/internal/deploy"
	tmpl "github.com/hwuu/sitedeploy/internal/template"
)

// websiteFlags 网站与模板文件参数
type websiteFlags struct {
	website  string
	template string
}

func (f *websiteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.website, "website", "w", "", "网站记录 YAML 文件")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "网站模板 YAML 文件（可选）")
	_ = cmd.MarkFlagRequired("website")
}

func (a *app) deployer(cmd *cobra.Command) (*deploy.Deployer, error) {
	credPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}
	cred, err := config.LoadCredentialsFrom(credPath)
	if err != nil {
		return nil, err
	}

	d := &deploy.Deployer{
		Notifier:    a.notifier(),
		Metrics:     a.metrics,
		Logger:      a.logger,
		Prompter:    config.NewPrompter(cmd.InOrStdin(), a.out),
		Credentials: cred,
		Keyring:     config.NewKeyring(),
		Output:      a.out,
	}
	d.Pipeline = a.builder(d.Progress)
	return d, nil
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var flags websiteFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "构建并上传网站",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(a *app) error {
				website, tpl, err := a.loadWebsite(flags.website, flags.template)
				if err != nil {
					return err
				}
				d, err := a.deployer(cmd)
				if err != nil {
					return err
				}
				return d.Run(cmd.Context(), website, tpl)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var flags websiteFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "仅构建网站（解压模板并执行构建脚本）",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(a *app) error {
				website, tpl, err := a.loadWebsite(flags.website, flags.template)
				if err != nil {
					return err
				}
				d, err := a.deployer(cmd)
				if err != nil {
					return err
				}
				return d.Build(cmd.Context(), website, tpl)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newUploadCmd(opts *globalOptions) *cobra.Command {
	var flags websiteFlags
	var output string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "仅上传网站构建产物",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(a *app) error {
				website, tpl, err := a.loadWebsite(flags.website, flags.template)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("output") && tpl != nil {
					output = tpl.Build.Directory
				}
				d, err := a.deployer(cmd)
				if err != nil {
					return err
				}
				return d.Upload(cmd.Context(), website, output)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "构建产物相对网站目录的子目录（默认取模板配置）")
	return cmd
}

func newCleanCmd(opts *globalOptions) *cobra.Command {
	var flags websiteFlags
	var force, dryRun bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "删除网站本地工作目录",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(a *app) error {
				website, _, err := a.loadWebsite(flags.website, "")
				if err != nil {
					return err
				}
				d := &deploy.Destroyer{
					Pipeline: a.builder(nil),
					Notifier: a.notifier(),
					Metrics:  a.metrics,
					Logger:   a.logger,
					Prompter: config.NewPrompter(cmd.InOrStdin(), a.out),
					Output:   a.out,
				}
				return d.Run(cmd.Context(), website, force, dryRun)
			})
		},
	}
	cmd.Flags().StringVarP(&flags.website, "website", "w", "", "网站记录 YAML 文件")
	_ = cmd.MarkFlagRequired("website")
	cmd.Flags().BoolVar(&force, "force", false, "跳过确认提示")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "仅显示将要删除的目录")
	return cmd
}

func (a *app) statusRunner() (*deploy.StatusRunner, error) {
	if a.history == nil {
		return nil, fmt.Errorf("%w: history is disabled", config.ErrInvalidConfig)
	}
	return &deploy.StatusRunner{History: a.history, Output: a.out}, nil
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <website-id>",
		Short: "查看网站最近一次生成状态",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(a *app) error {
				s, err := a.statusRunner()
				if err != nil {
					return err
				}
				return s.Run(cmd.Context(), args[0])
			})
		},
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int
	var runID string
	cmd := &cobra.Command{
		Use:   "history [website-id]",
		Short: "查看网站生成事件历史",
		Args: func(cmd *cobra.Command, args []string) error {
			if runID != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, false, func(a *app) error {
				s, err := a.statusRunner()
				if err != nil {
					return err
				}
				if runID != "" {
					return s.PrintRun(cmd.Context(), runID)
				}
				return s.PrintHistory(cmd.Context(), args[0], limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多显示的事件数，0 表示全部")
	cmd.Flags().StringVar(&runID, "run", "", "只显示指定任务的事件")
	return cmd
}

func newInitCmd() *cobra.Command {
	var id string
	var force, interactive bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "生成 website.yaml / template.yaml 脚手架",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if id == "" {
				abs, err := filepath.Abs(dir)
				if err != nil {
					return err
				}
				id = filepath.Base(abs)
			}

			data := tmpl.DefaultData(id)
			if interactive {
				prompter := config.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				if err := promptTransfer(prompter, data); err != nil {
					return err
				}
			}

			written, err := tmpl.WriteAll(dir, data, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range written {
				fmt.Fprintf(out, "  ✓ %s\n", path)
			}
			fmt.Fprintf(out, "\n编辑 website.yaml 后运行: sitedeploy generate -w website.yaml -t template.yaml\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "网站 ID（默认取目录名）")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的文件")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "交互式填写传输配置")
	return cmd
}

// promptTransfer 交互式填写协议、主机、端口、用户与远程目录
func promptTransfer(p *config.Prompter, data *tmpl.TemplateData) error {
	t, err := p.PromptTransfer(config.Transfer{
		Protocol:  config.Protocol(data.Protocol),
		Host:      data.Host,
		Port:      data.Port,
		User:      data.User,
		Directory: data.RemoteDir,
	})
	if err != nil {
		return err
	}
	data.Protocol = string(t.Protocol)
	data.Host = t.Host
	data.Port = t.Port
	data.User = t.User
	data.RemoteDir = t.Directory
	return nil
}

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "管理远程主机密码",
	}

	var useKeyring bool
	setCmd := &cobra.Command{
		Use:   "set <website-id>",
		Short: "保存网站的传输密码（默认写入凭证文件）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			websiteID := args[0]
			out := cmd.OutOrStdout()

			prompter := config.NewPrompter(cmd.InOrStdin(), out)
			password, err := prompter.PromptTransferPassword(websiteID, nil)
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("%w: password must not be empty", config.ErrInvalidConfig)
			}

			if useKeyring {
				if err := config.NewKeyring().SetPassword(websiteID, password); err != nil {
					return err
				}
				fmt.Fprintf(out, "  ✓ 已保存到系统钥匙串 (%s/%s)\n", config.KeyringService, websiteID)
				return nil
			}

			path, err := config.CredentialsPath()
			if err != nil {
				return err
			}
			cred, err := config.LoadCredentialsFrom(path)
			if err != nil {
				return err
			}
			cred.SetPassword(websiteID, password)
			if err := config.SaveCredentialsTo(path, cred); err != nil {
				return err
			}
			fmt.Fprintf(out, "  ✓ 已保存到 %s\n", path)
			return nil
		},
	}
	setCmd.Flags().BoolVar(&useKeyring, "keyring", false, "保存到系统钥匙串而不是凭证文件")

	cmd.AddCommand(setCmd)
	return cmd
}
