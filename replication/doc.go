package replication

/**
This package is for the replication feature of recordstore.
Replication pushes every mutation of the master's records to each configured slave
over a plain TCP connection. No acknowledgement is sent back.

- Connector (master)
	One goroutine per configured slave address. It dials the slave until it succeeds,
	sends the master's whole record set as the seed, joins the Broadcaster and then
	polls the connection for the slave going away. When it does, the link leaves the
	Broadcaster and the connector dials again.

- Broadcaster (master)
	Called synchronously from the master store's write path. It encodes the mutation
	once and writes it to every link of the broadcast set. A failed write marks that
	link broken; its connector tears it down.

- Receiver (slave)
	Listens on the configured address, accepts one master connection, replaces the local
	records with the seed and then applies Add/Delete frames.

- Monitor (slave)
	Looks the receiver's connection up in the host TCP table. If the entry is gone or not
	ESTABLISHED it tears the connection and the listener down and the receiver listens again.

Frames: one tag byte (0x00 add, 0x01 delete) followed by a msgpack payload
(an array of records for add, one record for delete).

Delivery is best effort. A mutation written to a link that dies before the slave reads it
is lost for that slave until its next seed.
*/
