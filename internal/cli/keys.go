package cli

import (
	"fmt"
	"os"

	"github.com/modguard/modguard/internal/signing"
	"github.com/spf13/cobra"
)

const (
	defaultPrivateKeyPath = "private.key"
	defaultPublicKeyPath  = "public.key"
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate Ed25519 keypair for signing policies",
	Long: `Generate a new Ed25519 keypair for signing policy files.

This creates two files:
  - private.key: Keep this secret! Used to sign policies.
  - public.key:  Share this with your team to verify signatures.

Example:
  modguard keygen
  modguard keygen --private my-private.key --public my-public.key`,
	RunE: runKeygen,
}

var (
	keygenPrivateFlag string
	keygenPublicFlag  string
)

func init() {
	keygenCmd.Flags().StringVar(&keygenPrivateFlag, "private", defaultPrivateKeyPath, "Path for the private key file")
	keygenCmd.Flags().StringVar(&keygenPublicFlag, "public", defaultPublicKeyPath, "Path for the public key file")
}

// GetKeygenCmd returns the keygen command
func GetKeygenCmd() *cobra.Command {
	return keygenCmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	// check existing keys
	if _, err := os.Stat(keygenPrivateFlag); err == nil {
		return fmt.Errorf("private key already exists at %s (use different path or delete existing)", keygenPrivateFlag)
	}
	if _, err := os.Stat(keygenPublicFlag); err == nil {
		return fmt.Errorf("public key already exists at %s (use different path or delete existing)", keygenPublicFlag)
	}

	fmt.Println("Generating Ed25519 keypair...")
	if err := signing.GenerateKeys(keygenPrivateFlag, keygenPublicFlag); err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}

	fmt.Printf("%s✓ Private key saved: %s%s\n", colorGreen, keygenPrivateFlag, colorReset)
	fmt.Printf("%s✓ Public key saved:  %s%s\n", colorGreen, keygenPublicFlag, colorReset)
	fmt.Printf("\n%s⚠ Keep your private key secret!%s\n", colorRed, colorReset)

	return nil
}

// signCmd signs policy files
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a policy file with your private key",
	Long: `Sign a policy file using your Ed25519 private key.

This creates a detached signature file (modguard.yaml.sig) that can be
used to verify the policy hasn't been tampered with before it gates a
build.

Example:
  modguard sign
  modguard sign --policy team-policy.yaml --key my-private.key --key-id releases`,
	RunE: runSign,
}

var (
	signPolicyFlag     string
	signPrivateKeyFlag string
	signOutputFlag     string
	signKeyIDFlag      string
)

func init() {
	signCmd.Flags().StringVarP(&signPolicyFlag, "policy", "p", defaultPolicyPath, "Path to the policy to sign")
	signCmd.Flags().StringVarP(&signPrivateKeyFlag, "key", "k", defaultPrivateKeyPath, "Path to the private key")
	signCmd.Flags().StringVarP(&signOutputFlag, "output", "o", "", "Path for the signature file (default <policy>.sig)")
	signCmd.Flags().StringVar(&signKeyIDFlag, "key-id", "", "Key identifier recorded in the signature header")
}

func GetSignCmd() *cobra.Command {
	return signCmd
}

func runSign(cmd *cobra.Command, args []string) error {
	policyData, err := os.ReadFile(signPolicyFlag)
	if err != nil {
		return fmt.Errorf("failed to read policy: %w", err)
	}

	envelope, err := signing.SignPolicy(policyData, signPrivateKeyFlag, signKeyIDFlag)
	if err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}

	output := signOutputFlag
	if output == "" {
		output = signPolicyFlag + ".sig"
	}
	if err := os.WriteFile(output, envelope, 0644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}

	fmt.Printf("%s✓ Policy signed successfully%s\n", colorGreen, colorReset)
	fmt.Printf("  Signature saved to: %s\n", output)

	return nil
}

// verifyCmd verifies policy signatures
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a policy file signature",
	Long: `Verify that a policy file matches its detached signature.

This checks that the policy hasn't been tampered with since it was
signed. Returns exit code 0 if valid, 1 if verification fails.

Example:
  modguard verify
  modguard verify --policy team-policy.yaml --signature team.sig --key my-public.key`,
	SilenceUsage: true,
	RunE:         runVerify,
}

var (
	verifyPolicyFlag    string
	verifySignatureFlag string
	verifyPublicKeyFlag string
)

func init() {
	verifyCmd.Flags().StringVarP(&verifyPolicyFlag, "policy", "p", defaultPolicyPath, "Path to the policy to verify")
	verifyCmd.Flags().StringVarP(&verifySignatureFlag, "signature", "s", "", "Path to the signature file (default <policy>.sig)")
	verifyCmd.Flags().StringVarP(&verifyPublicKeyFlag, "key", "k", defaultPublicKeyPath, "Path to the public key")
}

func GetVerifyCmd() *cobra.Command {
	return verifyCmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	policyData, err := os.ReadFile(verifyPolicyFlag)
	if err != nil {
		return fmt.Errorf("failed to read policy: %w", err)
	}

	sigPath := verifySignatureFlag
	if sigPath == "" {
		sigPath = verifyPolicyFlag + ".sig"
	}
	if err := requireFile(sigPath, " (run 'modguard sign' first)"); err != nil {
		return err
	}
	envelopeData, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}

	valid, err := signing.VerifyPolicy(policyData, envelopeData, verifyPublicKeyFlag)
	if err != nil {
		return fmt.Errorf("verification error: %w", err)
	}

	if valid {
		fmt.Printf("%s✅ Signature Verified%s\n", colorGreen, colorReset)
		return nil
	}

	fmt.Printf("%s❌ TAMPER DETECTED%s\n", colorRed, colorReset)
	os.Exit(1)
	return nil
}
