// Command smbkit transfers files to and from SMB1 shares.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smbkit/smbkit"
)

var (
	verbose   bool
	username  string
	password  string
	noNTResp  bool
	parallel  int
	outputDir string
)

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "smbkit",
		Short: "SMB1/CIFS single-file transfer client",
		Long: "smbkit reads and writes files on SMB shares over the NT LM 0.12\n" +
			"dialect with NTLM authentication.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&username, "user", "u", "", "username, optionally DOMAIN\\user")
	root.PersistentFlags().StringVarP(&password, "password", "p", "", "password")
	root.PersistentFlags().BoolVar(&noNTResp, "disable-nt-response", false, "send only the LM response during login")

	get := &cobra.Command{
		Use:   "get smb://server/share/path ...",
		Short: "Download one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGet,
	}
	get.Flags().IntVarP(&parallel, "parallel", "P", 1, "concurrent transfers (one connection each)")
	get.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for downloaded files")

	put := &cobra.Command{
		Use:   "put <local file> smb://server/share/path",
		Short: "Upload a file, overwriting the remote copy",
		Args:  cobra.ExactArgs(2),
		RunE:  runPut,
	}

	root.AddCommand(get, put)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// configFor builds a Config from the URL and the credential flags; flags
// win over URL userinfo.
func configFor(rawurl string) (*smbkit.Config, string, error) {
	cfg, remotePath, err := smbkit.ParseURL(rawurl)
	if err != nil {
		return nil, "", err
	}
	if username != "" {
		cfg.Username = username
	}
	if password != "" {
		cfg.Password = password
	}
	cfg.DisableNTResponse = noNTResp
	if verbose {
		cfg.Logger = log
	}
	return cfg, remotePath, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, rawurl := range args {
		rawurl := rawurl
		g.Go(func() error {
			return fetchOne(ctx, rawurl)
		})
	}

	return g.Wait()
}

// fetchOne downloads a single URL over its own connection; MPX=1 means a
// connection can only carry one transfer at a time.
func fetchOne(ctx context.Context, rawurl string) error {
	cfg, remotePath, err := configFor(rawurl)
	if err != nil {
		return err
	}

	local := filepath.Join(outputDir, filepath.Base(strings.ReplaceAll(remotePath, "\\", "/")))
	out, err := os.Create(local)
	if err != nil {
		return err
	}
	defer out.Close()

	client, err := smbkit.DialContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", rawurl, err)
	}
	defer client.Close()

	n, err := client.Download(ctx, remotePath, out)
	if err != nil {
		return fmt.Errorf("%s: %w", rawurl, err)
	}

	log.Infof("downloaded %s (%d bytes) -> %s", rawurl, n, local)
	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	cfg, remotePath, err := configFor(args[1])
	if err != nil {
		return err
	}

	client, err := smbkit.DialContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	defer client.Close()

	n, err := client.Upload(ctx, remotePath, f, info.Size())
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	log.Infof("uploaded %s (%d bytes) -> %s", args[0], n, args[1])
	return nil
}
