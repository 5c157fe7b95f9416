package main

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"perun.network/go-perun/log"

	"github.com/statechannels/nitro-protocol/assetholder"
	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/client"
	"github.com/statechannels/nitro-protocol/config"
	"github.com/statechannels/nitro-protocol/event"
	"github.com/statechannels/nitro-protocol/wallet"
)

const challengeDuration = 60

var (
	defaultApp         = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	defaultAssetHolder = common.HexToAddress("0x00000000000000000000000000000000000a55e7")
)

// main runs a dispute between two participants on the configured store and
// pays out the concluded channel.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("NITRO_CONFIG"))
	if err != nil {
		panic(err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		panic(err)
	}
	log.Set(logger)

	kv, err := cfg.OpenStore(ctx)
	if err != nil {
		panic(err)
	}
	if c, ok := kv.(io.Closer); ok {
		defer c.Close()
	}

	apps, err := cfg.AppRegistry()
	if err != nil {
		panic(err)
	}
	apps.Register(defaultApp, channel.CountingApp{})
	holders, err := cfg.AssetHolderAddresses()
	if err != nil {
		panic(err)
	}
	if len(holders) == 0 {
		holders = append(holders, defaultAssetHolder)
	}
	adjMetrics, holderMetrics, err := cfg.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, event.NewLoggerAdapter(logger))
	defer pubsub.Close()
	msgs, err := pubsub.Subscribe(ctx, event.DefaultTopic)
	if err != nil {
		panic(err)
	}
	go logEvents(logger, msgs)
	sink := event.NewPublisher(pubsub, event.DefaultTopic)

	// Time stands still so that the pushed outcome matches the conclusion.
	clock := channel.NewManualClock(uint64(time.Now().Unix()))
	adj := channel.NewAdjudicator(kv, apps,
		channel.WithClock(clock),
		channel.WithSink(sink),
		channel.WithMetrics(adjMetrics),
		channel.WithLogger(logger))
	holder := assetholder.NewAssetHolder(holders[0], kv,
		assetholder.WithSink(sink),
		assetholder.WithMetrics(holderMetrics),
		assetholder.WithLogger(logger))
	adj.RegisterAssetHolder(holder)

	w := wallet.NewEphemeralWallet()
	alice, err := w.AddNewAccount(rand.Reader)
	if err != nil {
		panic(err)
	}
	bob, err := w.AddNewAccount(rand.Reader)
	if err != nil {
		panic(err)
	}
	aliceClient, bobClient := client.New(adj, alice), client.New(adj, bob)

	ch := types.Channel{
		ChainID:      cfg.ChainIDBig(),
		Participants: []common.Address{alice.Address(), bob.Address()},
		ChannelNonce: big.NewInt(time.Now().UnixNano()),
	}
	id := ch.ID()
	allocation := types.Allocation{
		{Destination: types.AddressToDestination(alice.Address()), Amount: big.NewInt(70)},
		{Destination: types.AddressToDestination(bob.Address()), Amount: big.NewInt(30)},
	}
	outcome := types.Outcome{{AssetHolderAddress: holder.Address(), Item: allocation}}
	state := func(turnNum, counter uint64, isFinal bool) types.State {
		return types.State{
			TurnNum:           turnNum,
			IsFinal:           isFinal,
			Channel:           ch,
			Outcome:           outcome,
			AppDefinition:     defaultApp,
			AppData:           channel.EncodeCounter(counter),
			ChallengeDuration: challengeDuration,
		}
	}
	signAll := func(st types.State) []wallet.Signature {
		sigs := make([]wallet.Signature, 2)
		for i, c := range []*client.Client{aliceClient, bobClient} {
			if sigs[i], err = c.SignState(st); err != nil {
				panic(err)
			}
		}
		return sigs
	}

	// Fund the channel.
	funding := types.ChannelDestination(id)
	if _, _, err := holder.Deposit(ctx, funding, big.NewInt(0), big.NewInt(70)); err != nil {
		panic(err)
	}
	if _, _, err := holder.Deposit(ctx, funding, big.NewInt(70), big.NewInt(30)); err != nil {
		panic(err)
	}

	// Bob challenges with turn 3, alice moves on.
	challengeStates := []types.State{state(2, 2, false), state(3, 3, false)}
	if err := bobClient.Challenge(ctx, 0, challengeStates, signAll(challengeStates[1])); err != nil {
		panic(err)
	}
	finalizesAt := clock.Now() + challengeDuration
	if err := aliceClient.Respond(ctx, challengeStates[1], finalizesAt, bob.Address(), state(4, 4, false)); err != nil {
		panic(err)
	}

	// Both agree to close.
	final := []types.State{state(5, 0, true)}
	if err := aliceClient.Conclude(ctx, 4, types.ChannelStorage{}, final, signAll(final[0])); err != nil {
		panic(err)
	}
	if err := adj.PushOutcome(ctx, channel.PushOutcomeParams{
		ChannelID:   id,
		FinalizesAt: clock.Now(),
		Outcome:     outcome,
		AssetHolder: holder.Address(),
	}); err != nil {
		panic(err)
	}
	if err := holder.TransferAll(ctx, id, allocation); err != nil {
		panic(err)
	}

	amount := big.NewInt(70)
	sig, err := alice.SignData(types.WithdrawAuthorization(alice.Address(), alice.Address(), amount, alice.Address()))
	if err != nil {
		panic(err)
	}
	if err := holder.Withdraw(ctx, assetholder.WithdrawParams{
		Participant: alice.Address(),
		Destination: alice.Address(),
		Amount:      amount,
		Sender:      alice.Address(),
		Sig:         sig,
	}); err != nil {
		panic(err)
	}

	for _, p := range ch.Participants {
		held, err := holder.Holdings(ctx, types.AddressToDestination(p))
		if err != nil {
			panic(err)
		}
		logger.WithField("participant", p.Hex()).Infof("Holdings: %v", held)
	}
	logger.Info("DONE")
}

func logEvents(logger log.Logger, msgs <-chan *message.Message) {
	for msg := range msgs {
		ev, err := event.Decode(msg.Payload)
		if err != nil {
			logger.WithError(err).Warn("Undecodable event")
		} else {
			logger.WithField("type", msg.Metadata.Get(event.MetadataType)).Infof("Event: %+v", ev)
		}
		msg.Ack()
	}
}
