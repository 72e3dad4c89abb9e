package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/password"
)

type HashPasswordCmd struct {
	Rounds   int    `help:"bcrypt cost" default:"12" env:"BCRYPT_ROUNDS"`
	Password string `arg:"" optional:"" help:"password to hash; read from stdin when omitted"`
}

func (c *HashPasswordCmd) Run(globals *Globals) error {
	plain := c.Password
	if plain == "" {
		line, err := bufio.NewReader(globals.In).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		return errors.New("password must not be empty")
	}

	hasher, err := password.NewBcrypt(c.Rounds)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(globals.Out, hash)
	return err
}
