// Package buildersim is an in-memory stand-in for the remote builder
// service and the token ledger behind it. It implements every builder route
// so the client can be exercised end to end without a network: fetched
// transactions embed their operation in the instruction payload, and state
// only mutates when a correctly signed transaction is broadcast.
package buildersim

import (
	"crypto/rand"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"soltoken"
	"soltoken/builder"
)

type Options struct {
	ProgramID soltoken.PublicKey
	Mint      soltoken.PublicKey
	Decimals  uint8
}

type balances struct {
	Free   uint64
	Frozen uint64
}

type Server struct {
	app *fiber.App
	log *zerolog.Logger

	programID soltoken.PublicKey
	mint      soltoken.PublicKey
	decimals  uint8

	mu       sync.Mutex
	users    map[soltoken.UserID]*balances
	treasury uint64
	supply   uint64
}

func New(options Options) (s *Server) {
	s = &Server{
		programID: options.ProgramID,
		mint:      options.Mint,
		decimals:  options.Decimals,
		users:     map[soltoken.UserID]*balances{},
		log:       soltoken.Log(),
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())

	s.app.Post("/"+builder.RouteCreateUser, s.postOperation)
	s.app.Post("/"+builder.RouteMint, s.postOperation)
	s.app.Post("/"+builder.RouteTransfer, s.postOperation)
	s.app.Post("/"+builder.RouteDeposit, s.postOperation)
	s.app.Post("/broadcast", s.postBroadcast)
	s.app.Post("/balance_user", s.postBalanceUser)
	s.app.Get("/total_supply", s.getTotalSupply)
	s.app.Get("/balance_treasury", s.getBalanceTreasury)

	return
}

func (s *Server) Listen(addr string) (err error) {
	s.log.Info().Msgf("builder simulator listening on %s", addr)
	return errors.WithStack(s.app.Listen(addr))
}

// Listener serves on an existing listener; used by tests to bind port 0.
func (s *Server) Listener(ln net.Listener) (err error) {
	return errors.WithStack(s.app.Listener(ln))
}

func (s *Server) Shutdown() (err error) {
	return errors.WithStack(s.app.Shutdown())
}

func (s *Server) errorResponse(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(map[string]any{"error": errors.Cause(err).Error()})
}

// opPayload travels inside the instruction data of every fetched
// transaction, so broadcast can apply exactly the operation that was
// requested, and nothing else.
type opPayload struct {
	Op     string `json:"op"`
	UserID string `json:"user_id,omitempty"`
	FromID string `json:"from_id,omitempty"`
	ToID   string `json:"to_id,omitempty"`
	Mint   string `json:"mint,omitempty"`
	Amount uint64 `json:"amount,omitempty"`
}

func (s *Server) postOperation(c *fiber.Ctx) error {
	route := c.Path()[1:]
	body := gjson.ParseBytes(c.Body())

	payer, err := soltoken.ParsePublicKey(body.Get("payer_pubkey").String())
	if err != nil {
		return s.errorResponse(c, http.StatusBadRequest, errors.Wrap(err, "invalid payer_pubkey"))
	}

	payload := opPayload{
		Op:     route,
		UserID: body.Get("user_id").String(),
		FromID: body.Get("from_id").String(),
		ToID:   body.Get("to_id").String(),
		Mint:   body.Get("mint_pubkey").String(),
		Amount: body.Get("amount").Uint(),
	}

	if err = s.validate(payload); err != nil {
		return s.errorResponse(c, http.StatusBadRequest, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return s.errorResponse(c, http.StatusInternalServerError, err)
	}

	var recent soltoken.Hash
	_, _ = rand.Read(recent[:])

	msg, err := soltoken.CompileMessage(payer, recent, []soltoken.Instruction{{
		ProgramID: s.programID,
		Accounts:  []soltoken.AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true}},
		Data:      data,
	}})
	if err != nil {
		return s.errorResponse(c, http.StatusInternalServerError, err)
	}

	tx, err := soltoken.NewTransaction(msg)
	if err != nil {
		return s.errorResponse(c, http.StatusInternalServerError, err)
	}

	encoded, err := tx.EncodeBase64()
	if err != nil {
		return s.errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(map[string]string{"tx": encoded})
}

// validate rejects malformed operations at fetch time; balance checks wait
// until broadcast, when the signed operation actually applies.
func (s *Server) validate(payload opPayload) (err error) {
	switch payload.Op {
	case builder.RouteCreateUser:
		_, err = soltoken.ParseUserID(payload.UserID)
	case builder.RouteMint:
		if payload.Mint != s.mint.String() {
			err = errors.Errorf("unknown mint %s", payload.Mint)
		}
	case builder.RouteTransfer:
		if _, err = soltoken.ParseUserID(payload.FromID); err != nil {
			return
		}
		_, err = soltoken.ParseUserID(payload.ToID)
	case builder.RouteDeposit:
		_, err = soltoken.ParseUserID(payload.UserID)
	default:
		err = errors.Errorf("unknown operation %s", payload.Op)
	}
	return
}

func (s *Server) postBroadcast(c *fiber.Ctx) error {
	encoded := gjson.ParseBytes(c.Body()).Get("tx").String()

	tx, err := soltoken.DecodeBase64Transaction(encoded)
	if err != nil {
		return s.errorResponse(c, http.StatusBadRequest, err)
	}

	if err = tx.VerifySignatures(); err != nil {
		return s.errorResponse(c, http.StatusBadRequest, err)
	}

	msg, err := soltoken.ParseMessage(tx.Message)
	if err != nil {
		return s.errorResponse(c, http.StatusBadRequest, err)
	}
	if len(msg.Instructions) != 1 {
		return s.errorResponse(c, http.StatusBadRequest, errors.Errorf("expected 1 instruction, got %d", len(msg.Instructions)))
	}

	payload := opPayload{}
	if err = json.Unmarshal(msg.Instructions[0].Data, &payload); err != nil {
		return s.errorResponse(c, http.StatusBadRequest, errors.Wrap(err, "unreadable instruction payload"))
	}

	if err = s.apply(payload); err != nil {
		return s.errorResponse(c, http.StatusBadRequest, err)
	}

	return c.JSON(map[string]string{"sig": tx.Signatures[0].String()})
}

func (s *Server) apply(payload opPayload) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch payload.Op {
	case builder.RouteCreateUser:
		id, _ := soltoken.ParseUserID(payload.UserID)
		if _, exists := s.users[id]; !exists {
			s.users[id] = &balances{}
		}

	case builder.RouteMint:
		s.supply += payload.Amount
		s.treasury += payload.Amount

	case builder.RouteTransfer:
		id, _ := soltoken.ParseUserID(payload.ToID)
		user, exists := s.users[id]
		if !exists {
			return soltoken.ErrUnknownUser
		}
		if s.treasury < payload.Amount {
			return soltoken.ErrNotEnoughFunds
		}
		s.treasury -= payload.Amount
		user.Free += payload.Amount

	case builder.RouteDeposit:
		id, _ := soltoken.ParseUserID(payload.UserID)
		user, exists := s.users[id]
		if !exists {
			return soltoken.ErrUnknownUser
		}
		if s.treasury < payload.Amount {
			return soltoken.ErrNotEnoughFunds
		}
		s.treasury -= payload.Amount
		user.Free += payload.Amount

	default:
		return errors.Errorf("unknown operation %s", payload.Op)
	}

	return
}

func (s *Server) postBalanceUser(c *fiber.Ctx) error {
	id, err := soltoken.ParseUserID(gjson.ParseBytes(c.Body()).Get("user_id").String())
	if err != nil {
		return s.errorResponse(c, http.StatusBadRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return s.errorResponse(c, http.StatusNotFound, soltoken.ErrUnknownUser)
	}

	return c.JSON(map[string]uint64{
		"free_balance":   user.Free,
		"frozen_balance": user.Frozen,
	})
}

func (s *Server) getTotalSupply(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return c.JSON(map[string]any{"amount": s.supply, "decimals": s.decimals})
}

func (s *Server) getBalanceTreasury(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return c.JSON(map[string]any{"amount": s.treasury, "decimals": s.decimals})
}
