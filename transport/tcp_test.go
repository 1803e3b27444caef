package transport_test

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/rosapi/catalog"
	"github.com/luma/rosapi/client"
	"github.com/luma/rosapi/protocol"
	"github.com/luma/rosapi/transport"
)

var _ = Describe("transport", func() {
	var (
		ctx context.Context
		tcp *transport.TCP
	)

	BeforeEach(func() {
		ctx = context.Background()
		tcp = makeTCPServer()
	})

	AfterEach(func() {
		Expect(tcp.Close()).To(Succeed())
	})

	dialClient := func(password string) *client.Conn {
		addr := tcp.Addrs()[0].(*net.TCPAddr)

		return client.New(client.Options{
			Host:     "127.0.0.1",
			Port:     addr.Port,
			Username: "admin",
			Password: password,
			Timeout:  2 * time.Second,
		})
	}

	Describe("TCP", func() {
		It("listens on the reported address", func() {
			conn, err := net.Dial("tcp", tcp.Addrs()[0].String())
			Expect(err).To(Succeed())
			conn.Close()
		})

		It("serves a client session end to end", func() {
			conn := dialClient("secret")
			Expect(conn.Connect(ctx)).To(Succeed())

			data, err := conn.Send(ctx, catalog.EthernetPrint()...)
			Expect(err).To(Succeed())
			Expect(data).To(HaveLen(2))
			Expect(data[0]).To(HaveKeyWithValue("name", "ether1"))

			reply, err := conn.Run(ctx, catalog.IPAddressAdd("10.0.0.1/24", "ether1")...)
			Expect(err).To(Succeed())
			id := reply.Done["ret"]
			Expect(id).To(Equal("*2"))

			_, err = conn.Send(ctx, catalog.Remove(catalog.PathIPAddress, "*99")...)
			Expect(err).To(MatchError("no such item"))
			Expect(conn.State()).To(Equal(client.Ready))

			_, err = conn.Send(ctx, catalog.Remove(catalog.PathIPAddress, id)...)
			Expect(err).To(Succeed())

			Expect(conn.Close()).To(Succeed())
			Expect(conn.State()).To(Equal(client.Closed))
		})

		It("rejects bad credentials", func() {
			conn := dialClient("wrong")

			err := conn.Connect(ctx)
			Expect(errors.Is(err, client.ErrLoginFailed)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(transport.MsgInvalidLogin))
			Expect(conn.State()).To(Equal(client.Closed))
		})

		It("hangs up after /quit", func() {
			conn := dialClient("secret")
			Expect(conn.Connect(ctx)).To(Succeed())

			_, err := conn.Send(ctx, "/quit")

			var fatal *protocol.FatalError
			Expect(errors.As(err, &fatal)).To(BeTrue())
			Expect(fatal.Reason).To(Equal(transport.MsgQuit))

			Eventually(conn.State).Should(Equal(client.Closed))
		})

		It("answers a raw socket", func() {
			conn, err := net.Dial("tcp", tcp.Addrs()[0].String())
			Expect(err).To(Succeed())
			defer conn.Close()

			Expect(protocol.WriteSentence(conn, "/login")).To(Succeed())

			asm := protocol.NewAssembler(0)
			buf := make([]byte, 512)

			Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())

			var replies [][]protocol.Sentence
			for len(replies) == 0 {
				n, err := conn.Read(buf)
				Expect(err).To(Succeed())

				replies, err = asm.Feed(buf[:n])
				Expect(err).To(Succeed())
			}

			Expect(replies[0]).To(Equal([]protocol.Sentence{{"!done"}}))
		})
	})
})

func makeTCPServer() *transport.TCP {
	log, err := zap.NewDevelopment()
	Expect(err).To(Succeed())

	tcp := transport.NewTCP(transport.Options{
		Host:         "127.0.0.1",
		Port:         0,
		NumListeners: 2,
		Reuseport:    true,
		Trace:        true,
		Username:     "admin",
		Password:     "secret",
		Log:          log,
	})

	Expect(tcp.Start(context.Background())).To(Succeed())

	return tcp
}
