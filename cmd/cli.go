package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
)

var Version = "dev"
var Revision = "HEAD"

type CLI struct {
	Backup struct {
		PoolID      string `help:"User pool ID to snapshot" required:""`
		URI         string `help:"Snapshot destination URI (e.g., s3://bucket/prefix or file:///path/to/dir); defaults to s3://$BACKUP_BUCKET_NAME"`
		KMSKeyID    string `help:"KMS key ID used to encrypt the snapshot (e.g., alias/my-key or a key ARN)"`
		KMSRegion   string `help:"KMS region (e.g., ap-northeast-1)"`
		DataKeyPath string `help:"Pre-generated data key file (e.g., file:///path/to/datakey.json)"`
	} `cmd:"" help:"Snapshot a user pool's users, groups, and memberships to object storage"`

	Restore struct {
		Key               string `help:"Snapshot key as reported by backup or list" required:""`
		URI               string `help:"Snapshot source URI; defaults to s3://$BACKUP_BUCKET_NAME"`
		TargetPoolID      string `help:"Existing user pool to restore into; when omitted a new pool is created from the snapshot"`
		TemporaryPassword string `help:"Shared temporary password for restored users; when omitted a random one is generated per user"`
		KMSKeyID          string `help:"KMS key ID used to decrypt the snapshot"`
		KMSRegion         string `help:"KMS region (e.g., ap-northeast-1)"`
	} `cmd:"" help:"Restore users, groups, and memberships from a snapshot"`

	List struct {
		URI     string `help:"Snapshot URI to search; defaults to s3://$BACKUP_BUCKET_NAME"`
		Pattern string `help:"Regular expression pattern to filter snapshot keys" default:".*"`
	} `cmd:"" help:"List stored snapshots"`

	Decrypt struct {
		Input       string `help:"URI of the encrypted snapshot" required:""`
		Output      string `help:"URI to write the decrypted snapshot to" required:""`
		KMSKeyID    string `help:"KMS key ID the snapshot was encrypted with" required:""`
		KMSRegion   string `help:"KMS region (e.g., ap-northeast-1)"`
		DataKeyPath string `help:"Data key file path (e.g., file:///path/to/datakey.json)" required:""`
	} `cmd:"" help:"Decrypt an encrypted snapshot"`

	GenerateDatakey struct {
		KMSKeyID  string `help:"KMS key ID for generating the data key" required:""`
		KMSRegion string `help:"KMS region (e.g., ap-northeast-1)"`
		Output    string `help:"Output file path (default: stdout)"`
		Format    string `help:"Output format (json|base64)" default:"json" enum:"json,base64"`
		Spec      string `help:"Data key specification (AES_256|AES_128)" default:"AES_256" enum:"AES_256,AES_128"`
		Test      bool   `help:"Generate a test data key without a KMS call"`
	} `cmd:"generate-datakey" help:"Generate a KMS data key for snapshot encryption"`

	Version VersionFlag `name:"version" help:"show version"`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Printf("%s-%s\n", Version, Revision)
	app.Exit(0)
	return nil
}

func RunCLI(ctx context.Context, args []string) error {
	cli := CLI{
		Version: VersionFlag(Version),
	}
	parser, err := kong.New(&cli)
	if err != nil {
		return fmt.Errorf("error creating CLI parser: %w", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return fmt.Errorf("error parsing CLI: %w", err)
	}

	switch strings.Fields(kctx.Command())[0] {
	case "backup":
		return Backup(ctx, &cli)
	case "restore":
		return Restore(ctx, &cli)
	case "list":
		return List(ctx, &cli)
	case "decrypt":
		return Decrypt(ctx, &cli)
	case "generate-datakey":
		return GenerateDatakey(ctx, &cli)
	}
	return nil
}
