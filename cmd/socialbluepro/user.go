package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/config"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/db"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/repository"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Operator account management",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new operator",
	RunE:  runUserCreate,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all operators",
	RunE:  runUserList,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete [email]",
	Short: "Delete an operator",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password [email]",
	Short: "Reset an operator's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserResetPassword,
}

var (
	userEmail    string
	userPassword string
	userName     string
)

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "User email")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "User password (will prompt if not provided)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "User name")
	userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userResetPasswordCmd)
}

func openUserRepository() (*repository.UserRepository, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	return repository.NewUserRepository(database.DB), func() { database.Close() }, nil
}

func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	pwBytes2, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(pwBytes2) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	users, closeDB, err := openUserRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	password := userPassword
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}
	if len(password) < 10 {
		return fmt.Errorf("password must be at least 10 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        userEmail,
		PasswordHash: string(hash),
		Name:         userName,
	}
	if err := users.Create(user); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("user with email %s already exists", userEmail)
		}
		return err
	}

	fmt.Printf("User %s created successfully\n", userEmail)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	users, closeDB, err := openUserRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := users.List()
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-30s  %-20s  %s\n", "ID", "Email", "Name", "Created")
	fmt.Println(strings.Repeat("-", 100))
	for _, u := range list {
		fmt.Printf("%-36s  %-30s  %-20s  %s\n", u.ID, u.Email, u.Name, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	email := args[0]

	users, closeDB, err := openUserRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	existing, err := users.GetByEmail(email)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("user %s not found", email)
	}

	fmt.Printf("Are you sure you want to delete user %s? [y/N]: ", email)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println("Cancelled")
		return nil
	}

	if err := users.DeleteByEmail(email); err != nil {
		return err
	}
	fmt.Printf("User %s deleted\n", email)
	return nil
}

func runUserResetPassword(cmd *cobra.Command, args []string) error {
	email := args[0]

	users, closeDB, err := openUserRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	user, err := users.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", email)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	if len(password) < 10 {
		return fmt.Errorf("password must be at least 10 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := users.UpdatePassword(user.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	fmt.Printf("Password for %s updated successfully\n", email)
	return nil
}
