package cli

import (
	"context"
	"os"
)

// Register prompts for credentials and creates an account. On success the
// session is authenticated immediately.
func (a *App) Register(ctx context.Context) error {
	login, err := GetSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Register(ctx, login, string(password)); err != nil {
		return err
	}
	a.loggedIn = true
	printlnFn("Registered as", login)
	return nil
}

// Login prompts for credentials and authenticates.
func (a *App) Login(ctx context.Context) error {
	login, err := GetSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Login(ctx, login, string(password)); err != nil {
		return err
	}
	a.loggedIn = true
	printlnFn("Logged in as", login)
	return nil
}

// Logout ends the session: subscriptions are released and the local cache is
// wiped so another account can never observe this user's lists.
func (a *App) Logout(ctx context.Context) error {
	if err := a.manager.Reset(ctx); err != nil {
		return err
	}
	a.client.SetToken("")
	a.loggedIn = false
	a.current = ""
	printlnFn("Logged out")
	return nil
}
