// Package keygen generates self-signed TLS certificates and RSA keys for sockets.
//
// A generated pair works for both roles. For mutual authentication the server uses
// the client certificate as CA and requests client certificates:
//
//	_ = keygen.GenerateKeys("server.pub", "server.pem")
//	_ = keygen.GenerateKeys("client.pub", "client.pem")
//	conf, _ := common.LoadTLSConf("server.pub", "server.pem", "client.pub")
//	conf.RequestCert, conf.RejectUnauthorized = true, true
package keygen
