package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"Apostille/internal/announce"
	"Apostille/internal/api"
	"Apostille/internal/apostille"
	"Apostille/internal/bundler"
	"Apostille/internal/hashtag"
	"Apostille/internal/identity"
	"Apostille/internal/keys"
	"Apostille/internal/logger"
	"Apostille/internal/registry"
)

// errInvalidTag is returned by verify when the data does not match the tag.
var errInvalidTag = errors.New("data does not match the apostille tag")

// tagOptions are shared by tag and issue.
type tagOptions struct {
	algorithm string // algorithm overrides the configured algorithm
	private   bool   // private signs the digest with the owner key
}

func (o *tagOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.algorithm, "algorithm", "", "Hash algorithm (md5, sha1, sha256, sha3-256, sha3-512, keccak-256, keccak-512)")
	cmd.Flags().BoolVar(&o.private, "private", false, "Sign the digest with the owner key")
}

// resolve returns the algorithm to use.
func (o *tagOptions) resolve(cfg *Config) (hashtag.Algorithm, error) {
	if o.algorithm != "" {
		return hashtag.ParseAlgorithm(o.algorithm)
	}
	return cfg.algorithm()
}

// tagCmd prints the tagged hash of a file.
func (a *app) tagCmd() *cobra.Command {
	var opts tagOptions

	cmd := &cobra.Command{
		Use:   "tag <file>",
		Short: "Print the apostille tag of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s:\n%w", args[0], err)
			}

			alg, err := opts.resolve(a.cfg)
			if err != nil {
				return err
			}

			var tag hashtag.TaggedHash
			if opts.private {
				owner, err := a.owner()
				if err != nil {
					return fmt.Errorf("load key:\n%w", err)
				}
				tag, err = hashtag.SignAndTag(data, alg, owner)
				if err != nil {
					return err
				}
			} else if tag, err = hashtag.Tag(data, alg, false); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tag.Hex())
			return nil
		},
	}

	opts.register(cmd)

	return cmd
}

// verifyCmd checks a file against a tag.
func (a *app) verifyCmd() *cobra.Command {
	var publicKey string

	cmd := &cobra.Command{
		Use:   "verify <file> <tag>",
		Short: "Verify a file against an apostille tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s:\n%w", args[0], err)
			}

			var owner keys.Key
			if publicKey != "" {
				network, err := a.cfg.network()
				if err != nil {
					return err
				}
				if owner, err = keys.PublicAccountFromHex(publicKey, network); err != nil {
					return err
				}
			}

			c, ok, err := apostille.Check(data, args[1], owner)
			if err != nil {
				return err
			}

			mode := "public"
			if c.IsPrivate {
				mode = "private"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "algorithm: %s\nmode: %s\nvalid: %t\n", c.Algorithm, mode, ok)

			if !ok {
				return errInvalidTag
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&publicKey, "public-key", "", "Owner public key (hex) for private tags")

	return cmd
}

// deriveCmd prints the identity of a seed under the owner key.
func (a *app) deriveCmd() *cobra.Command {
	var showPrivate bool

	cmd := &cobra.Command{
		Use:   "derive <seed>",
		Short: "Derive the identity account of a seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := a.owner()
			if err != nil {
				return fmt.Errorf("load key:\n%w", err)
			}

			id, err := identity.Derive(args[0], owner, owner.Network())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "address: %s\npublic key: %s\n", id.Address(), hex.EncodeToString(id.PublicKey()))
			if showPrivate {
				fmt.Fprintf(out, "private key: %s\n", hex.EncodeToString(id.PrivateKey()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPrivate, "show-private", false, "Also print the derived private key")

	return cmd
}

// issueCmd notarizes a file: derive, tag, bundle, then record and announce.
func (a *app) issueCmd() *cobra.Command {
	var (
		opts   tagOptions
		seed   string
		owners []string
		quorum int
		submit bool
	)

	cmd := &cobra.Command{
		Use:   "issue <file>",
		Short: "Notarize a file on the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s:\n%w", args[0], err)
			}

			alg, err := opts.resolve(a.cfg)
			if err != nil {
				return err
			}

			owner, err := a.owner()
			if err != nil {
				return fmt.Errorf("load key:\n%w", err)
			}

			if seed == "" {
				seed = filepath.Base(args[0])
			}

			iss, err := apostille.Issue(apostille.Request{
				Seed:      seed,
				Data:      data,
				Algorithm: alg,
				Private:   opts.private,
				Owner:     owner,
			})
			if err != nil {
				return err
			}

			var extra []bundler.Pending
			if len(owners) > 0 {
				p, err := a.association(iss.Identity, owners, quorum)
				if err != nil {
					return err
				}
				extra = append(extra, p)
			}

			notarizeOpts := apostille.Options{Extra: extra}

			if a.cfg.DataPath != "" {
				reg, err := registry.Open(registry.Options{Path: a.cfg.DataPath})
				if err != nil {
					return err
				}
				defer reg.Close()
				notarizeOpts.Recorder = reg
			}

			if submit {
				client, err := a.announcer()
				if err != nil {
					return err
				}
				notarizeOpts.Announcer = client
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := apostille.Notarize(ctx, iss, notarizeOpts)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "identity: %s\ntag: %s\n", iss.Identity.Address(), iss.Tag.Hex())
			if result != nil {
				for _, b := range result.Bundles {
					fmt.Fprintf(out, "bundle: %s %s\n", b.Kind, b.Operation.HashHex())
				}
			}

			return err
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&seed, "seed", "", "Identity seed (defaults to the file name)")
	cmd.Flags().StringSliceVar(&owners, "owners", nil, "Public keys (hex) that will own the identity as a multisig account")
	cmd.Flags().IntVar(&quorum, "quorum", 1, "Owner approvals required after association")
	cmd.Flags().BoolVar(&submit, "announce", false, "Submit the bundles to the ledger endpoint")

	return cmd
}

// association builds the multisig conversion for owner public keys in hex.
func (a *app) association(id *identity.Identity, owners []string, quorum int) (bundler.Pending, error) {
	ks := make([]keys.Key, 0, len(owners))
	for _, h := range owners {
		pk, err := keys.PublicAccountFromHex(strings.TrimSpace(h), id.Network())
		if err != nil {
			return bundler.Pending{}, fmt.Errorf("owner %s:\n%w", h, err)
		}
		ks = append(ks, pk)
	}

	return apostille.Associate(id, ks, quorum)
}

// announcer builds the ledger client from the configuration.
func (a *app) announcer() (*announce.Client, error) {
	cfg, err := a.cfg.announceConfig()
	if err != nil {
		return nil, err
	}
	return announce.New(cfg), nil
}

// serveCmd runs the verification API until interrupted.
func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("http") {
				a.cfg.HTTPAddress = addr
			}

			var lookup api.IdentityLookup
			if a.cfg.DataPath != "" {
				reg, err := registry.Open(registry.Options{Path: a.cfg.DataPath})
				if err != nil {
					return err
				}
				defer reg.Close()
				lookup = reg
			}

			server := api.New(a.cfg.HTTPAddress, lookup)
			if err := server.Start(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()
			logger.Info("shutting down")

			return server.Stop()
		},
	}

	cmd.Flags().StringVar(&addr, "http", ":8080", "HTTP listen address")

	return cmd
}
