package book

var (
	_ Repository = (*MockRepository)(nil)
	_ Pinger     = (*MockPinger)(nil)
	_ Mirror     = (*MockMirror)(nil)
)
