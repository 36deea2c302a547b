package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "svnctl",
	Short: "SVN portal CLI",
	Long:  "A CLI for managing repositories, users, groups and access rules through the portal API.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(accessCmd())
	rootCmd.AddCommand(repoCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(groupCmd())
	rootCmd.AddCommand(ruleCmd())
	rootCmd.AddCommand(auditCmd())
}

// --- login ---

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate and store a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				fmt.Print("Password: ")
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Scan()
				password = strings.TrimSpace(scanner.Text())
			}
			client := newClient()
			result, err := client.post("/v1/auth/login", map[string]any{
				"username": args[0],
				"password": password,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			if tok, ok := result["token"].(string); ok {
				cfg.Token = tok
				if err := saveConfig(); err == nil {
					fmt.Fprintln(os.Stderr, "Token saved to config.")
				}
			}
			printSuccess("Success! Logged in as " + args[0])
			return nil
		},
	}
	cmd.Flags().String("password", "", "Password (prompted if omitted)")
	return cmd
}

// --- access ---

func accessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access <repo-id> <path>",
		Short: "Check effective access to a repository path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			q := url.Values{}
			q.Set("repo", args[0])
			q.Set("path", args[1])
			if user != "" {
				q.Set("user", user)
			}
			client := newClient()
			result, err := client.get("/v1/access?" + q.Encode())
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("user", "", "Check access for another user (admin only)")
	return cmd
}

// --- repo ---

func repoCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "repo", Short: "Manage repositories"}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, _ := cmd.Flags().GetString("location")
			defaultAccess, _ := cmd.Flags().GetString("default-access")
			body := map[string]any{"name": args[0], "location": location}
			if defaultAccess != "" {
				body["default_access"] = defaultAccess
			}
			client := newClient()
			result, err := client.post("/v1/repos", body)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	createCmd.Flags().String("location", "", "Filesystem location of the repository")
	createCmd.Flags().String("default-access", "", "Baseline access override: none, read or write")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/repos")
			if err != nil {
				printError(err.Error())
				return nil
			}
			if repos, ok := result["repositories"].([]any); ok {
				printRows(repos, "id", "name", "location", "archived")
				return nil
			}
			printResult(result)
			return nil
		},
	}

	archiveCmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/repos/"+args[0]+"/archive", nil); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Repository archived.")
			return nil
		},
	}

	setDefaultCmd := &cobra.Command{
		Use:   "set-default <id> <level>",
		Short: "Set or clear the repository baseline (none, read, write or server)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if args[1] != "server" {
				body["default_access"] = args[1]
			}
			client := newClient()
			if _, err := client.post("/v1/repos/"+args[0]+"/default-access", body); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Baseline updated.")
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd, archiveCmd, setDefaultCmd)
	return cmd
}

// --- user ---

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage user accounts"}

	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			displayName, _ := cmd.Flags().GetString("display-name")
			password, _ := cmd.Flags().GetString("password")
			caps, _ := cmd.Flags().GetStringSlice("capability")
			client := newClient()
			result, err := client.post("/v1/users", map[string]any{
				"username":     args[0],
				"display_name": displayName,
				"password":     password,
				"capabilities": caps,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	createCmd.Flags().String("display-name", "", "Display name")
	createCmd.Flags().String("password", "", "Initial password (empty leaves login disabled)")
	createCmd.Flags().StringSlice("capability", nil, "Capability flags, e.g. admin-access")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/users")
			if err != nil {
				printError(err.Error())
				return nil
			}
			if users, ok := result["users"].([]any); ok {
				printRows(users, "id", "username", "display_name", "active")
				return nil
			}
			printResult(result)
			return nil
		},
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/users/"+args[0]+"/deactivate", nil); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! User deactivated.")
			return nil
		},
	}

	grantCmd := &cobra.Command{
		Use:   "grant <id> <capability>",
		Short: "Grant a capability flag to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/users/"+args[0]+"/capabilities", map[string]any{"capability": args[1]}); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Capability granted.")
			return nil
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke <id> <capability>",
		Short: "Revoke a capability flag from a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/users/" + args[0] + "/capabilities/" + args[1]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Capability revoked.")
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd, deactivateCmd, grantCmd, revokeCmd)
	return cmd
}

// --- group ---

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "group", Short: "Manage groups and membership"}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/groups", map[string]any{"name": args[0]})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/groups")
			if err != nil {
				printError(err.Error())
				return nil
			}
			if groups, ok := result["groups"].([]any); ok {
				printRows(groups, "id", "name")
				return nil
			}
			printResult(result)
			return nil
		},
	}

	memberCmd := &cobra.Command{Use: "member", Short: "Direct membership edges"}
	memberAddCmd := &cobra.Command{
		Use:   "add <group-id> <user-id>",
		Short: "Add a user to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/groups/"+args[0]+"/members", map[string]any{"user_id": args[1]}); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Member added.")
			return nil
		},
	}
	memberRemoveCmd := &cobra.Command{
		Use:   "remove <group-id> <user-id>",
		Short: "Remove a user from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/groups/" + args[0] + "/members/" + args[1]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Member removed.")
			return nil
		},
	}
	memberCmd.AddCommand(memberAddCmd, memberRemoveCmd)

	subgroupCmd := &cobra.Command{Use: "subgroup", Short: "Subgroup inclusion edges"}
	subgroupAddCmd := &cobra.Command{
		Use:   "add <parent-id> <child-id>",
		Short: "Nest a group inside another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/groups/"+args[0]+"/subgroups", map[string]any{"child_id": args[1]}); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Subgroup added.")
			return nil
		},
	}
	subgroupRemoveCmd := &cobra.Command{
		Use:   "remove <parent-id> <child-id>",
		Short: "Remove a subgroup edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/groups/" + args[0] + "/subgroups/" + args[1]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Subgroup removed.")
			return nil
		},
	}
	subgroupCmd.AddCommand(subgroupAddCmd, subgroupRemoveCmd)

	usersCmd := &cobra.Command{
		Use:   "users <group-id>",
		Short: "List the fully expanded membership of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/groups/" + args[0] + "/users")
			if err != nil {
				printError(err.Error())
				return nil
			}
			if ids, ok := result["user_ids"].([]any); ok {
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}
			printResult(result)
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd, memberCmd, subgroupCmd, usersCmd)
	return cmd
}

// --- rule ---

func ruleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rule", Short: "Manage permission rules"}

	addCmd := &cobra.Command{
		Use:   "add <repo-id> <path> <subject-type> <subject-id> <access>",
		Short: "Add a permission rule",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/rules", map[string]any{
				"repository_id": args[0],
				"path":          args[1],
				"subject_type":  args[2],
				"subject_id":    args[3],
				"access":        args[4],
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List permission rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _ := cmd.Flags().GetString("repo")
			subjectType, _ := cmd.Flags().GetString("subject-type")
			subject, _ := cmd.Flags().GetString("subject")
			q := url.Values{}
			if repo != "" {
				q.Set("repo", repo)
			}
			if subject != "" {
				q.Set("subject_type", subjectType)
				q.Set("subject", subject)
			}
			client := newClient()
			result, err := client.get("/v1/rules?" + q.Encode())
			if err != nil {
				printError(err.Error())
				return nil
			}
			if rules, ok := result["rules"].([]any); ok {
				printRows(rules, "id", "repository_id", "path", "subject_type", "subject_id", "access")
				return nil
			}
			printResult(result)
			return nil
		},
	}
	listCmd.Flags().String("repo", "", "Filter by repository id")
	listCmd.Flags().String("subject-type", "user", "Subject type for -subject: user or group")
	listCmd.Flags().String("subject", "", "Filter by subject id")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a permission rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/rules/" + args[0]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Rule deleted.")
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, deleteCmd)
	return cmd
}

// --- audit ---

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			action, _ := cmd.Flags().GetString("action")
			limit, _ := cmd.Flags().GetString("limit")
			q := url.Values{}
			if actor != "" {
				q.Set("actor", actor)
			}
			if action != "" {
				q.Set("action", action)
			}
			if limit != "" {
				q.Set("limit", limit)
			}
			client := newClient()
			result, err := client.get("/v1/audit?" + q.Encode())
			if err != nil {
				printError(err.Error())
				return nil
			}
			if records, ok := result["data"].([]any); ok {
				printRows(records, "timestamp", "actor", "action", "target", "outcome")
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("actor", "", "Filter by actor id")
	cmd.Flags().String("action", "", "Filter by action, e.g. rule.add")
	cmd.Flags().String("limit", "", "Maximum records to return")
	return cmd
}
