/*
Package main is a minimal terminal client for the Rasel chat server.

It is a thin demonstration shell over the client API: slash commands issue
requests, and bus subscriptions print incoming responses as they arrive.
*/
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"rasel/internal/client"
	"rasel/internal/pkg/logx"
	"rasel/internal/protocol"
)

func main() {
	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = "127.0.0.1:12345"
	}

	logx.InitGlobalLogger(false)

	c := client.New(addr)
	if err := c.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer c.Close()

	c.OnAuthSuccess(func(resp *protocol.Response) {
		fmt.Printf("<< authenticated: %s\n", resp.Data)
	})
	c.OnAuthFailure(func(resp *protocol.Response) {
		fmt.Printf("<< authentication failed: %s\n", resp.Data)
	})
	c.OnGroups(func(resp *protocol.Response) {
		fmt.Printf("<< your groups: %s\n", resp.Data)
	})
	c.OnUsers(func(resp *protocol.Response) {
		fmt.Printf("<< users: %s\n", resp.Data)
	})
	c.OnMessages(func(resp *protocol.Response) {
		payload, err := protocol.ParseMessagePayload(resp.Data)
		if err != nil {
			fmt.Printf("<< [%s] %s\n", resp.Group, resp.Data)
			return
		}
		fmt.Printf("<< [%s] %s: %s\n", payload.Group, payload.SenderName, payload.Content)
	})

	fmt.Printf("Connected to %s\n", addr)
	fmt.Println("Commands: /auth <user> <pass> | /signup <user> <pass> | /create <group>")
	fmt.Println("          /add <group> <user> | /groups | /users [group] | /send <group> <message...>")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		var err error

		switch parts[0] {
		case "/auth":
			if len(parts) != 3 {
				fmt.Println("usage: /auth <user> <pass>")
				continue
			}
			err = c.Authenticate(protocol.Credentials{Username: parts[1], Password: parts[2]})
		case "/signup":
			if len(parts) != 3 {
				fmt.Println("usage: /signup <user> <pass>")
				continue
			}
			err = c.Signup(protocol.Credentials{Username: parts[1], Password: parts[2]})
		case "/create":
			if len(parts) != 2 {
				fmt.Println("usage: /create <group>")
				continue
			}
			err = c.CreateGroup(parts[1])
		case "/add":
			if len(parts) != 3 {
				fmt.Println("usage: /add <group> <user>")
				continue
			}
			err = c.AddUserToGroup(parts[1], parts[2])
		case "/groups":
			err = c.RequestGroups()
		case "/users":
			if len(parts) == 2 {
				err = c.RequestGroupUsers(parts[1])
			} else {
				err = c.RequestUsers()
			}
		case "/send":
			if len(parts) < 3 {
				fmt.Println("usage: /send <group> <message...>")
				continue
			}
			err = c.SendMessage(parts[1], strings.Join(parts[2:], " "))
		case "/quit":
			return
		default:
			fmt.Println("unknown command")
			continue
		}

		if err != nil {
			fmt.Printf("!! %v\n", err)
		}
	}
}
